package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/bootstrap"
	"github.com/canonica-labs/chkconf/internal/config"
	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/storage"
)

const builtinPrefix = "builtin:"

// sourceFlags selects the rule set of a command.
type sourceFlags struct {
	rules   string
	builtin string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.rules, "rules", "", "rule-set definition file")
	cmd.Flags().StringVar(&s.builtin, "builtin", "", "built-in rule set (e.g. wxwidgets)")
}

// loadDefinition resolves --rules, --builtin and the configured rule set, in
// that order.
func (c *CLI) loadDefinition(s sourceFlags) (*bootstrap.Definition, error) {
	if s.rules != "" && s.builtin != "" {
		return nil, &usageError{err: fmt.Errorf("use either --rules or --builtin, not both")}
	}

	ref := c.cfg.RuleSet
	switch {
	case s.rules != "":
		ref = s.rules
	case s.builtin != "":
		ref = builtinPrefix + s.builtin
	}

	c.debugf("Loading rule set %s\n", ref)
	var def *bootstrap.Definition
	var err error
	if name, ok := strings.CutPrefix(ref, builtinPrefix); ok {
		def, err = bootstrap.BuiltinDefinition(name)
	} else {
		def, err = bootstrap.LoadDefinition(ref)
	}
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// ruleSetName is the name a definition is reported under.
func ruleSetName(def *bootstrap.Definition) string {
	if def.Path() != "" {
		return def.Path()
	}
	return def.Name
}

// openStore opens the configured report store.
func (c *CLI) openStore(ctx context.Context) (*storage.SQLRepository, error) {
	c.debugf("Opening %s store %s\n", c.cfg.Store.Driver, c.cfg.Store.DSN)
	if c.cfg.Store.Driver == config.DriverSQLite && isFilePath(c.cfg.Store.DSN) {
		if err := os.MkdirAll(filepath.Dir(c.cfg.Store.DSN), 0755); err != nil {
			return nil, errors.NewStorage("create store directory", err)
		}
	}
	return storage.Open(ctx, c.cfg.Store.Driver, c.cfg.Store.DSN)
}

// isFilePath reports whether a SQLite DSN names a plain file.
func isFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}
