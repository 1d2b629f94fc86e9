package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/canonica-labs/chkconf/internal/config"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// render writes resolved reports in one of the output formats.
func render(w io.Writer, format string, reports []*models.Report) error {
	switch format {
	case config.FormatJSON:
		return renderJSON(w, reports)
	case config.FormatYAML:
		return renderYAML(w, reports)
	case config.FormatHeader:
		return renderHeader(w, reports)
	case config.FormatEnv:
		return renderEnv(w, reports)
	case config.FormatTable, "":
		return renderTable(w, reports)
	default:
		return &usageError{err: fmt.Errorf("invalid format: %s (valid: %s)", format, strings.Join(config.Formats(), ", "))}
	}
}

func renderJSON(w io.Writer, reports []*models.Report) error {
	if len(reports) == 1 {
		return writeJSON(w, reports[0])
	}
	return writeJSON(w, reports)
}

func renderYAML(w io.Writer, reports []*models.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func renderTable(w io.Writer, reports []*models.Report) error {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Platform: %s (%s, %d passes)\n", r.Platform, r.Mode, r.Passes)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FLAG\tVALUE\tORIGIN\tSOURCE")
		for _, f := range r.Flags {
			source := "-"
			if len(f.Sources) > 0 {
				source = strings.Join(f.Sources, ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, digit(f.Value), f.Origin, source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// renderHeader writes a C header with one #define per flag. Several
// platforms are separated by #if blocks on CHKCONF_PLATFORM_<NAME>.
func renderHeader(w io.Writer, reports []*models.Report) error {
	fmt.Fprintf(w, "/* Generated by chkconf %s. Do not edit. */\n", Version)
	fmt.Fprintln(w, "#ifndef CHKCONF_SETUP_H")
	fmt.Fprintln(w, "#define CHKCONF_SETUP_H")

	for _, r := range reports {
		fmt.Fprintln(w)
		guard := len(reports) > 1
		if guard {
			fmt.Fprintf(w, "#if defined(CHKCONF_PLATFORM_%s)\n", strings.ToUpper(r.Platform))
		}
		fmt.Fprintf(w, "/* platform: %s, rule set: %s */\n", r.Platform, r.RuleSet)
		for _, f := range r.Flags {
			fmt.Fprintf(w, "#define %s %s\n", f.Name, digit(f.Value))
		}
		if guard {
			fmt.Fprintln(w, "#endif")
		}
	}

	fmt.Fprintln(w)
	_, err := fmt.Fprintln(w, "#endif /* CHKCONF_SETUP_H */")
	return err
}

// renderEnv writes NAME=0/1 lines. With several platforms each name is
// prefixed by the upper-case platform.
func renderEnv(w io.Writer, reports []*models.Report) error {
	for _, r := range reports {
		prefix := ""
		if len(reports) > 1 {
			prefix = strings.ToUpper(r.Platform) + "_"
		}
		for _, f := range r.Flags {
			if _, err := fmt.Fprintf(w, "%s%s=%s\n", prefix, f.Name, digit(f.Value)); err != nil {
				return err
			}
		}
	}
	return nil
}

func digit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
