package bootstrap

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/rules"
)

const validDefinition = `
version: 1
name: test
flags:
  wxUSE_FS_ARCHIVE: {default: 0}
  wxUSE_FILESYSTEM: {default: false, description: "virtual file system"}
  wxUSE_STREAMS: {default: off}
  wxUSE_FILE: {default: false}
  wxUSE_FFILE: {default: false}
  wxUSE_ARCHIVE_STREAMS: {default: true}
  wxUSE_DATETIME: {default: 1}
  wxUSE_PROTOCOL_HTTP: {}
rules:
  - id: fs-archive
    implies: {when: wxUSE_FS_ARCHIVE, set: {wxUSE_FILESYSTEM: true, wxUSE_ARCHIVE_STREAMS: 1}}
  - id: filesystem-needs-streams
    implies: {when: "wxUSE_FILESYSTEM and not wxUSE_PROTOCOL_HTTP", set: {wxUSE_STREAMS: true}}
  - id: archive-streams-need-datetime
    requires: {flag: wxUSE_ARCHIVE_STREAMS, all: [wxUSE_DATETIME]}
    severity: auto-correct
  - id: filesystem-needs-file
    ensure_any: {when: wxUSE_FILESYSTEM, flags: [wxUSE_FILE, wxUSE_FFILE]}
    platforms: [msw, GTK]
`

func TestParseDefinition_Valid(t *testing.T) {
	def, err := ParseDefinition([]byte(validDefinition))
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	assert.True(t, def.IsValidated())

	reg, rs, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 8, reg.Len())

	v, err := reg.Get("wxUSE_PROTOCOL_HTTP")
	require.NoError(t, err)
	assert.Equal(t, flags.Unset, v)

	v, err = reg.Get("wxUSE_DATETIME")
	require.NoError(t, err)
	assert.Equal(t, flags.True, v)

	f, err := reg.Lookup("wxUSE_FILESYSTEM")
	require.NoError(t, err)
	assert.Equal(t, "virtual file system", f.Description)

	// fs-archive expands to one rule per target, sorted by flag name
	assert.Equal(t, 6, rs.Len())
	r, ok := rs.Get("fs-archive:wxUSE_ARCHIVE_STREAMS")
	require.True(t, ok)
	assert.Equal(t, "fs-archive", r.Group)
	assert.True(t, r.Value)

	r, ok = rs.Get("archive-streams-need-datetime")
	require.True(t, ok)
	assert.Equal(t, rules.SeverityAutoCorrect, r.Severity)
	assert.Equal(t, rules.FormRequiresAll, r.Form)

	r, ok = rs.Get("filesystem-needs-file:wxUSE_FILE")
	require.True(t, ok)
	assert.Equal(t, []string{"msw", "gtk"}, r.Platforms)
}

func TestParseDefinition_UnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"top level", "version: 1\nname: x\nflags: {A: {}}\nlayers: []\n", "unknown key: layers"},
		{"flag", "version: 1\nflags: {A: {defualt: true}}\n", "unknown key in flag A: defualt"},
		{"rule", "version: 1\nflags: {A: {}}\nrules:\n  - id: r\n    when: A\n", "unknown key in rule r: when"},
		{"rule form", "version: 1\nflags: {A: {}}\nrules:\n  - id: r\n    implies: {if: A, set: {A: true}}\n", "unknown key in rule r implies: if"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.yaml))
			var invalid *errors.ErrInvalidDefinition
			require.True(t, stderrors.As(err, &invalid), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDefinition_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "version: [1\n"},
		{"empty", ""},
		{"wrong version", "version: 2\nflags: {A: {}}\n"},
		{"no flags", "version: 1\nname: x\n"},
		{"bad default", "version: 1\nflags: {A: {default: maybe}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestDefinition_ValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		field string
	}{
		{"missing id", "  - implies: {when: A, set: {B: true}}\n", "id"},
		{"duplicate id", "  - id: r\n    implies: {when: A, set: {B: true}}\n  - id: r\n    implies: {when: B, set: {A: true}}\n", "id"},
		{"no form", "  - id: r\n", "form"},
		{"two forms", "  - id: r\n    implies: {when: A, set: {B: true}}\n    requires: {flag: A, all: [B]}\n", "form"},
		{"bad severity", "  - id: r\n    implies: {when: A, set: {B: true}}\n    severity: fatal\n", "severity"},
		{"bad platform", "  - id: r\n    implies: {when: A, set: {B: true}}\n    platforms: [beos]\n", "platforms"},
		{"bad condition", "  - id: r\n    implies: {when: A +, set: {B: true}}\n", "implies.when"},
		{"empty condition", "  - id: r\n    implies: {set: {B: true}}\n", "implies.when"},
		{"empty set", "  - id: r\n    implies: {when: A, set: {}}\n", "implies.set"},
		{"requires both", "  - id: r\n    requires: {flag: A, all: [B], any: [B]}\n", "requires"},
		{"requires neither", "  - id: r\n    requires: {flag: A}\n", "requires"},
		{"requires no flag", "  - id: r\n    requires: {all: [B]}\n", "requires.flag"},
		{"ensure any empty", "  - id: r\n    ensure_any: {when: A, flags: []}\n", "ensure_any.flags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition([]byte("version: 1\nflags: {A: {}, B: {}}\nrules:\n" + tt.rules))
			require.NoError(t, err)

			err = def.Validate()
			var invalid *errors.ErrInvalidRule
			require.True(t, stderrors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestDefinition_BuildUnknownFlag(t *testing.T) {
	def, err := ParseDefinition([]byte(`
version: 1
flags: {wxUSE_STREAMS: {default: false}}
rules:
  - id: typo
    implies: {when: wxUSE_Streams, set: {wxUSE_STREAMS: true}}
`))
	require.NoError(t, err)

	_, _, err = def.Build()
	var unknown *errors.ErrUnknownFlag
	require.True(t, stderrors.As(err, &unknown))
	assert.Equal(t, "wxUSE_Streams", unknown.Flag)
	assert.Equal(t, "rule typo", unknown.Context)
}

func TestLoadDefinition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDefinition), 0644))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, path, def.Path())
	assert.Equal(t, "test", def.Name)

	_, err = LoadDefinition(filepath.Join(dir, "missing.yaml"))
	var invalid *errors.ErrInvalidDefinition
	require.True(t, stderrors.As(err, &invalid))
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestDefinition_SaveRoundTrip(t *testing.T) {
	def, err := ParseDefinition([]byte(validDefinition))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, def.Save(path))

	again, err := LoadDefinition(path)
	require.NoError(t, err)
	_, rs, err := again.Build()
	require.NoError(t, err)
	assert.Equal(t, 6, rs.Len())
}

func TestBootstrapper_Init(t *testing.T) {
	dir := t.TempDir()
	b := NewBootstrapper()

	path, err := b.Init(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefinitionFile), path)

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	_, _, err = def.Build()
	require.NoError(t, err)

	_, err = b.Init(dir)
	require.Error(t, err)

	b.Force = true
	_, err = b.Init(dir)
	require.NoError(t, err)
}
