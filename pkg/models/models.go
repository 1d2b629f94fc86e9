// Package models provides the shared data models for chkconf reports.
package models

import (
	"time"
)

// Report is the external representation of one resolution run. It is what
// `resolve --format json` prints and what the report store persists.
type Report struct {
	ID          string             `json:"id" yaml:"id"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
	RuleSet     string             `json:"ruleset" yaml:"ruleset"`
	Platform    string             `json:"platform" yaml:"platform"`
	Mode        string             `json:"mode" yaml:"mode"`
	Passes      int                `json:"passes" yaml:"passes"`
	Bound       int                `json:"bound" yaml:"bound"`
	Outcome     string             `json:"outcome" yaml:"outcome"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
	Flags       []FlagState        `json:"flags" yaml:"flags"`
	Changes     []Change           `json:"changes" yaml:"changes"`
	Diagnostics []DiagnosticReport `json:"diagnostics" yaml:"diagnostics"`
}

// Warnings returns the number of warning diagnostics.
func (r *Report) Warnings() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == "warning" {
			n++
		}
	}
	return n
}

// Flag returns the state of one flag.
func (r *Report) Flag(name string) (FlagState, bool) {
	for _, f := range r.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return FlagState{}, false
}

// FlagState is the final value of one flag.
type FlagState struct {
	Name    string `json:"name" yaml:"name"`
	Value   bool   `json:"value" yaml:"value"`
	Origin  string `json:"origin" yaml:"origin"`
	Default string `json:"default" yaml:"default"`

	// Sources lists the rules forcing the flag at the fixed point.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Change is one entry of a report's change log.
type Change struct {
	Pass   int    `json:"pass" yaml:"pass"`
	Flag   string `json:"flag" yaml:"flag"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
	Origin string `json:"origin" yaml:"origin"`
	Rule   string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// DiagnosticReport is a warning or error attached to a report.
type DiagnosticReport struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Severity string   `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Flags    []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Rules    []string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// ReportFilter narrows a report listing.
type ReportFilter struct {
	Platform string
	Outcome  string

	// Limit caps the number of reports; zero means no limit.
	Limit int
}

// Matches reports whether r passes the filter, ignoring Limit.
func (f ReportFilter) Matches(r *Report) bool {
	if f.Platform != "" && r.Platform != f.Platform {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	return true
}

// ErrorResponse is the JSON shape of a failed command.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}
