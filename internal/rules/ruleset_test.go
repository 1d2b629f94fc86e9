package rules

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonica-labs/chkconf/internal/errors"
)

type declared map[string]bool

func (d declared) Has(name string) bool { return d[name] }

func TestImplies_MultipleTargetsShareGroup(t *testing.T) {
	rs := Implies("fs_archive", Ref("wxUSE_FS_ARCHIVE"),
		Assignment{Flag: "wxUSE_FILESYSTEM", Value: true},
		Assignment{Flag: "wxUSE_ARCHIVE_STREAMS", Value: true},
	)
	require.Len(t, rs, 2)
	assert.Equal(t, "fs_archive:wxUSE_FILESYSTEM", rs[0].ID)
	assert.Equal(t, "fs_archive:wxUSE_ARCHIVE_STREAMS", rs[1].ID)
	for _, r := range rs {
		assert.Equal(t, "fs_archive", r.Group)
		assert.Equal(t, FormImplies, r.Form)
		assert.True(t, r.Value)
	}

	single := Implies("url", Ref("wxUSE_URL"), Assignment{Flag: "wxUSE_PROTOCOL", Value: true})
	require.Len(t, single, 1)
	assert.Equal(t, "url", single[0].ID)
}

func TestRequiresAll_Condition(t *testing.T) {
	r := RequiresAll("archive_needs_datetime", "wxUSE_ARCHIVE_STREAMS", "wxUSE_DATETIME")
	assert.Equal(t, "wxUSE_ARCHIVE_STREAMS", r.Target)
	assert.False(t, r.Value)

	assert.True(t, r.Condition.Eval(envOf("wxUSE_ARCHIVE_STREAMS")))
	assert.False(t, r.Condition.Eval(envOf("wxUSE_ARCHIVE_STREAMS", "wxUSE_DATETIME")))
	assert.False(t, r.Condition.Eval(envOf()))

	multi := RequiresAll("m", "A", "B", "C")
	assert.True(t, multi.Condition.Eval(envOf("A", "B")))
	assert.False(t, multi.Condition.Eval(envOf("A", "B", "C")))
}

func TestRequiresAny_Condition(t *testing.T) {
	r := RequiresAny("fswatcher", "wxUSE_FSWATCHER", "wxUSE_CONSOLE_EVENTLOOP", "wxUSE_GUI")
	assert.True(t, r.Condition.Eval(envOf("wxUSE_FSWATCHER")))
	assert.False(t, r.Condition.Eval(envOf("wxUSE_FSWATCHER", "wxUSE_GUI")))
	assert.Equal(t, FormRequiresAny, r.Form)
}

func TestEnsureAny_Condition(t *testing.T) {
	rs := EnsureAny("filesystem_file", Ref("wxUSE_FILESYSTEM"), "wxUSE_FILE", "wxUSE_FFILE")
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.True(t, r.Value)
		assert.Equal(t, "filesystem_file", r.Group)
		assert.True(t, r.Condition.Eval(envOf("wxUSE_FILESYSTEM")))
		assert.False(t, r.Condition.Eval(envOf("wxUSE_FILESYSTEM", "wxUSE_FFILE")))
	}
}

func TestNewRuleSet_Validation(t *testing.T) {
	cond := Ref("A")
	tests := []struct {
		name  string
		rules []Rule
		field string
	}{
		{"missing id", []Rule{{Condition: cond, Target: "B"}}, "id"},
		{"duplicate id", []Rule{{ID: "r", Condition: cond, Target: "B"}, {ID: "r", Condition: cond, Target: "C"}}, "id"},
		{"missing condition", []Rule{{ID: "r", Target: "B"}}, "condition"},
		{"missing target", []Rule{{ID: "r", Condition: cond}}, "target"},
		{"bad severity", []Rule{{ID: "r", Condition: cond, Target: "B", Severity: "loud"}}, "severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet(tt.rules...)
			var invalid *errors.ErrInvalidRule
			require.True(t, stderrors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestRuleSet_DefaultsAndCanonicalOrder(t *testing.T) {
	rs, err := NewRuleSet(
		Rule{ID: "z", Condition: Ref("A"), Target: "B", Value: true},
		Rule{ID: "a", Condition: Ref("B"), Target: "C", Value: true},
	)
	require.NoError(t, err)

	decl := rs.Rules()
	assert.Equal(t, "z", decl[0].ID)
	assert.Equal(t, SeverityErrorIfConflict, decl[0].Severity)
	assert.Equal(t, "z", decl[0].Group)

	canon := rs.Canonical()
	assert.Equal(t, "a", canon[0].ID)
	assert.Equal(t, "z", canon[1].ID)

	r, ok := rs.Get("a")
	require.True(t, ok)
	assert.Equal(t, "C", r.Target)
	_, ok = rs.Get("missing")
	assert.False(t, ok)
}

func TestRuleSet_ValidateUnknownFlag(t *testing.T) {
	rs, err := NewRuleSet(Implies("streams", MustParseCondition("wxUSE_FILESYSTEM || wxUSE_Protocol"),
		Assignment{Flag: "wxUSE_STREAMS", Value: true})...)
	require.NoError(t, err)

	err = rs.Validate(declared{"wxUSE_FILESYSTEM": true, "wxUSE_STREAMS": true, "wxUSE_PROTOCOL": true})
	var unknown *errors.ErrUnknownFlag
	require.True(t, stderrors.As(err, &unknown))
	assert.Equal(t, "wxUSE_Protocol", unknown.Flag)
	assert.Equal(t, "rule streams", unknown.Context)

	require.NoError(t, rs.Validate(declared{"wxUSE_FILESYSTEM": true, "wxUSE_STREAMS": true, "wxUSE_Protocol": true}))
}

func TestRuleSet_ForPlatform(t *testing.T) {
	rs, err := NewRuleSet(
		Rule{ID: "common", Condition: Ref("A"), Target: "B", Value: true},
		Rule{ID: "unix_only", Condition: Ref("A"), Target: "C", Value: true, Platforms: []string{"unix", "gtk"}},
		Rule{ID: "msw_only", Condition: Ref("A"), Target: "D", Value: true, Platforms: []string{"msw"}},
	)
	require.NoError(t, err)

	gtk := rs.ForPlatform("gtk")
	assert.Equal(t, 2, gtk.Len())
	_, ok := gtk.Get("unix_only")
	assert.True(t, ok)

	none := rs.ForPlatform("")
	assert.Equal(t, 1, none.Len())
}

func TestRuleSet_Lookups(t *testing.T) {
	var all []Rule
	all = append(all, EnsureAny("fs", Ref("wxUSE_FILESYSTEM"), "wxUSE_FILE", "wxUSE_FFILE")...)
	all = append(all, Implies("fs_streams", Ref("wxUSE_FILESYSTEM"), Assignment{Flag: "wxUSE_STREAMS", Value: true})...)
	rs, err := NewRuleSet(all...)
	require.NoError(t, err)

	assert.Equal(t, []string{"wxUSE_FFILE", "wxUSE_FILE"}, rs.GroupTargets("fs"))
	assert.Equal(t, []string{"fs:wxUSE_FILE"}, rs.Targeting("wxUSE_FILE"))
	assert.Equal(t, []string{"fs:wxUSE_FFILE", "fs:wxUSE_FILE", "fs_streams"}, rs.Reading("wxUSE_FILESYSTEM"))
}

func TestRuleSet_Merge(t *testing.T) {
	a, err := NewRuleSet(Rule{ID: "r1", Condition: Ref("A"), Target: "B", Value: true})
	require.NoError(t, err)
	b, err := NewRuleSet(Rule{ID: "r2", Condition: Ref("B"), Target: "C", Value: true})
	require.NoError(t, err)

	m, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = a.Merge(a)
	require.Error(t, err)
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, SeverityErrorIfConflict, s)

	s, err = ParseSeverity("Auto-Correct")
	require.NoError(t, err)
	assert.Equal(t, SeverityAutoCorrect, s)

	_, err = ParseSeverity("fatal")
	require.Error(t, err)
}

func TestRule_String(t *testing.T) {
	r := RequiresAll("archive", "wxUSE_ARCHIVE_STREAMS", "wxUSE_DATETIME")
	assert.Equal(t, "archive: wxUSE_ARCHIVE_STREAMS && !wxUSE_DATETIME => wxUSE_ARCHIVE_STREAMS=0", r.String())
}
