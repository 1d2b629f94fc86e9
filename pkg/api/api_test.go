package api

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonica-labs/chkconf/internal/bootstrap"
	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/platform"
)

func wx(t *testing.T) *bootstrap.Definition {
	t.Helper()
	def, err := bootstrap.BuiltinDefinition("wxwidgets")
	require.NoError(t, err)
	return def
}

func TestResolve_Report(t *testing.T) {
	res, err := Resolve(wx(t), Options{
		Platform:  "gtk",
		Overrides: []string{"wxUSE_FS_ARCHIVE=1"},
	})
	require.NoError(t, err)
	assert.Equal(t, platform.GTK, res.Platform)
	assert.Equal(t, "builtin:wxwidgets", res.RuleSet)
	assert.NotEmpty(t, res.RunID)

	on, err := res.Selector().IsEnabled("wxUSE_STREAMS")
	require.NoError(t, err)
	assert.True(t, on)

	report := res.Report()
	assert.Equal(t, res.RunID, report.ID)
	assert.Equal(t, "gtk", report.Platform)
	assert.Equal(t, "auto-correct", report.Mode)
	assert.Equal(t, "resolved", report.Outcome)
	assert.Equal(t, res.Snapshot.Len(), len(report.Flags))
	assert.Equal(t, len(res.Changes), len(report.Changes))

	fs, ok := report.Flag("wxUSE_FILESYSTEM")
	require.True(t, ok)
	assert.True(t, fs.Value)
	assert.Equal(t, "derived", fs.Origin)
	assert.Equal(t, "0", fs.Default)
	assert.Equal(t, []string{"fs-archive:wxUSE_FILESYSTEM"}, fs.Sources)

	user, ok := report.Flag("wxUSE_FS_ARCHIVE")
	require.True(t, ok)
	assert.Equal(t, "user-override", user.Origin)
}

func TestResolve_Traits(t *testing.T) {
	res, err := Resolve(wx(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, platform.Base, res.Platform)

	traits, err := res.Traits()
	require.NoError(t, err)
	assert.Nil(t, traits.CreateRenderer())
	assert.True(t, traits.HasStderr())

	res, err = Resolve(wx(t), Options{Platform: "msw"})
	require.NoError(t, err)
	traits, err = res.Traits()
	require.NoError(t, err)
	require.NotNil(t, traits.CreateRenderer())
	assert.Equal(t, "msw", traits.CreateRenderer().Name())
}

func TestResolve_StrictConflict(t *testing.T) {
	_, err := Resolve(wx(t), Options{
		Platform:  "gtk",
		Mode:      "strict",
		Overrides: []string{"wxUSE_FS_ARCHIVE=1", "wxUSE_FILESYSTEM=0"},
	})
	var conflict *errors.ErrConfigConflict
	require.True(t, stderrors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "wxUSE_FILESYSTEM", conflict.Flag)
	assert.Equal(t, "fs-archive:wxUSE_FILESYSTEM", conflict.RuleID)

	report := FailureReport("builtin:wxwidgets", "gtk", "strict", err)
	assert.Equal(t, "conflict", report.Outcome)
	assert.Empty(t, report.Flags)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "config-conflict", report.Diagnostics[0].Kind)
	assert.Equal(t, []string{"wxUSE_FILESYSTEM"}, report.Diagnostics[0].Flags)
}

func TestResolve_AutoCorrectWarning(t *testing.T) {
	res, err := Resolve(wx(t), Options{
		Platform:  "gtk",
		Overrides: []string{"wxUSE_FS_ARCHIVE=1", "wxUSE_FILESYSTEM=0"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Warnings())
	assert.Equal(t, 1, res.Report().Warnings())
}

func TestResolve_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		target interface{}
	}{
		{"unknown platform", Options{Platform: "beos"}, new(*errors.ErrUnknownPlatform)},
		{"unknown flag", Options{Overrides: []string{"wxUSE_Gui=1"}}, new(*errors.ErrUnknownFlag)},
		{"unset override", Options{Overrides: []string{"wxUSE_GUI=unset"}}, new(*errors.ErrInvalidOverride)},
		{"bad mode", Options{Mode: "lenient"}, new(*errors.ErrInvalidOverride)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(wx(t), tt.opts)
			require.Error(t, err)
			assert.True(t, stderrors.As(err, tt.target), "got %T: %v", err, err)
			assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestResolvePlatforms(t *testing.T) {
	results, err := ResolvePlatforms(context.Background(), wx(t), []string{"base", "gtk", "univ"}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []bool{false, true, true} {
		on, err := results[i].Selector().IsEnabled("wxUSE_GUI")
		require.NoError(t, err)
		assert.Equal(t, want, on, results[i].Platform)
	}
	assert.NotEqual(t, results[0].RunID, results[1].RunID)

	univ, err := results[2].Selector().IsEnabled("wxUSE_UNIVERSAL")
	require.NoError(t, err)
	assert.True(t, univ)
}

func TestResolvePlatforms_ArchiveWithoutDatetime(t *testing.T) {
	results, err := ResolvePlatforms(context.Background(), wx(t), []string{"base", "gtk"}, Options{
		Overrides: []string{"wxUSE_FS_ARCHIVE=1", "wxUSE_DATETIME=0"},
	})
	require.NoError(t, err)
	for _, res := range results {
		on, err := res.Selector().IsEnabled("wxUSE_ARCHIVE_STREAMS")
		require.NoError(t, err)
		assert.True(t, on, res.Platform)
	}
}

func TestResolvePlatforms_Divergence(t *testing.T) {
	def, err := bootstrap.ParseDefinition([]byte(`version: 1
name: split
flags:
  wxUSE_A: {default: false}
  wxUSE_B: {default: false}
rules:
  - id: a-enables-b
    implies: {when: wxUSE_A, set: {wxUSE_B: true}}
  - id: a-disables-b
    implies: {when: wxUSE_A, set: {wxUSE_B: false}}
`))
	require.NoError(t, err)

	_, err = ResolvePlatforms(context.Background(), def, []string{"base", "gtk"}, Options{
		Overrides: []string{"wxUSE_A=1"},
	})
	var divergence *errors.ErrPropagationDivergence
	require.True(t, stderrors.As(err, &divergence), "got %v", err)
	assert.Equal(t, errors.CodeDivergence, errors.CodeOf(err))
}
