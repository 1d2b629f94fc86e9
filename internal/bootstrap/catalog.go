package bootstrap

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/canonica-labs/chkconf/internal/errors"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// BuiltinNames returns the names of the embedded definitions.
func BuiltinNames() []string {
	entries, err := catalogFS.ReadDir("catalog")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// BuiltinDefinition returns an embedded definition by name.
func BuiltinDefinition(name string) (*Definition, error) {
	data, err := catalogFS.ReadFile(path.Join("catalog", name+".yaml"))
	if err != nil {
		return nil, errors.NewInvalidDefinition("builtin:"+name,
			fmt.Sprintf("no built-in definition named %q (available: %s)", name, strings.Join(BuiltinNames(), ", ")), nil)
	}
	def, err := parseDefinition("builtin:"+name, data)
	if err != nil {
		return nil, err
	}
	return def, nil
}
