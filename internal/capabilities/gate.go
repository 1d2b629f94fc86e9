package capabilities

import (
	"github.com/canonica-labs/chkconf/internal/rules"
)

// Reader answers whether a resolved flag is on. *flags.Snapshot and
// *platform.Selector satisfy it.
type Reader interface {
	IsEnabled(name string) (bool, error)
}

// Gates maps each capability to the flag condition that grants it.
var Gates = map[Capability]rules.Expr{
	CapabilityConfig:        rules.MustParseCondition("wxUSE_CONFIG"),
	CapabilityEventLoop:     rules.MustParseCondition("wxUSE_GUI || wxUSE_CONSOLE_EVENTLOOP"),
	CapabilityRenderer:      rules.MustParseCondition("wxUSE_GUI"),
	CapabilityMessageOutput: rules.Const(true),
	CapabilityTimer:         rules.MustParseCondition("wxUSE_TIMER"),
	CapabilityThreads:       rules.MustParseCondition("wxUSE_THREADS"),
	CapabilitySockets:       rules.MustParseCondition("wxUSE_SOCKETS"),
	CapabilityStdPaths:      rules.MustParseCondition("wxUSE_STDPATHS"),
}

// GateFlags returns the sorted names of every flag read by the gates.
func GateFlags() []string {
	var all rules.Or
	for _, c := range AllCapabilities() {
		all = append(all, Gates[c])
	}
	return rules.Refs(all)
}

// Gate computes the capability set granted by the resolved flags in r.
// A gate flag missing from r is an error, not an absent capability.
func Gate(r Reader) (CapabilitySet, error) {
	values := make(map[string]bool)
	for _, name := range GateFlags() {
		on, err := r.IsEnabled(name)
		if err != nil {
			return nil, err
		}
		values[name] = on
	}

	env := func(name string) bool { return values[name] }
	set := make(CapabilitySet)
	for _, c := range AllCapabilities() {
		if Gates[c].Eval(env) {
			set.Add(c)
		}
	}
	return set, nil
}
