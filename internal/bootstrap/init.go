package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefinitionFile is the file name written by Init.
const DefinitionFile = "chkconf.yaml"

// Bootstrapper handles project initialization.
type Bootstrapper struct {
	// Force allows Init to overwrite an existing file.
	Force bool
}

// NewBootstrapper creates a new bootstrapper.
func NewBootstrapper() *Bootstrapper {
	return &Bootstrapper{}
}

// Init writes an example definition into dir and returns its path.
func (b *Bootstrapper) Init(dir string) (string, error) {
	defPath := filepath.Join(dir, DefinitionFile)

	if _, err := os.Stat(defPath); err == nil && !b.Force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", defPath)
	}

	if err := os.WriteFile(defPath, []byte(exampleDefinition), 0644); err != nil {
		return "", fmt.Errorf("failed to write definition file: %w", err)
	}

	return defPath, nil
}

const exampleDefinition = `# chkconf rule-set definition
# Generated by 'chkconf init'
#
# Resolve with:  chkconf resolve --rules chkconf.yaml --set wxUSE_FS_ARCHIVE=1

version: 1
name: example

flags:
  wxUSE_FS_ARCHIVE:      {default: false, description: "archive file system handler"}
  wxUSE_FILESYSTEM:      {default: false, description: "virtual file system"}
  wxUSE_STREAMS:         {default: false, description: "stream classes"}
  wxUSE_FILE:            {default: false}
  wxUSE_FFILE:           {default: false}
  wxUSE_ARCHIVE_STREAMS: {default: false}
  wxUSE_DATETIME:        {default: true}
  wxUSE_PROTOCOL_HTTP:   {}    # no default: unset until derived, then 0

rules:
  - id: fs-archive-needs-filesystem
    implies: {when: wxUSE_FS_ARCHIVE, set: {wxUSE_FILESYSTEM: true}}

  - id: filesystem-needs-streams
    implies: {when: wxUSE_FILESYSTEM, set: {wxUSE_STREAMS: true}}

  - id: archive-streams-need-datetime
    requires: {flag: wxUSE_ARCHIVE_STREAMS, all: [wxUSE_DATETIME]}
    severity: auto-correct

  - id: filesystem-needs-file
    ensure_any: {when: wxUSE_FILESYSTEM, flags: [wxUSE_FILE, wxUSE_FFILE]}
    platforms: [msw, gtk]
`
