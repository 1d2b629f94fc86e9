package rules

// Assignment is a target flag and the value a rule forces on it.
type Assignment struct {
	Flag  string
	Value bool
}

// Implies forces every assignment when cond holds:
// "wxUSE_FS_ARCHIVE implies wxUSE_FILESYSTEM".
func Implies(id string, cond Expr, assignments ...Assignment) []Rule {
	out := make([]Rule, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, Rule{
			ID:        memberID(id, a.Flag, len(assignments)),
			Group:     id,
			Condition: cond,
			Target:    a.Flag,
			Value:     a.Value,
			Severity:  SeverityErrorIfConflict,
			Form:      FormImplies,
		})
	}
	return out
}

// RequiresAll turns flag off when it is on and any of deps is off:
// "wxUSE_ARCHIVE_STREAMS requires wxUSE_DATETIME".
func RequiresAll(id, flag string, deps ...string) Rule {
	missing := make(Or, len(deps))
	for i, d := range deps {
		missing[i] = Not{X: Ref(d)}
	}
	var cond Expr = And{Ref(flag), missing}
	if len(deps) == 1 {
		cond = And{Ref(flag), Not{X: Ref(deps[0])}}
	}
	return Rule{
		ID:        id,
		Group:     id,
		Condition: cond,
		Target:    flag,
		Value:     false,
		Severity:  SeverityErrorIfConflict,
		Form:      FormRequiresAll,
	}
}

// RequiresAny turns flag off when it is on and none of deps is on:
// "if none of {B,C,D} is set, force A off".
func RequiresAny(id, flag string, deps ...string) Rule {
	cond := And{Ref(flag)}
	for _, d := range deps {
		cond = append(cond, Not{X: Ref(d)})
	}
	return Rule{
		ID:        id,
		Group:     id,
		Condition: cond,
		Target:    flag,
		Value:     false,
		Severity:  SeverityErrorIfConflict,
		Form:      FormRequiresAny,
	}
}

// EnsureAny turns every target on when cond holds and none of the targets
// is on: wxUSE_FILESYSTEM needing wxUSE_FILE or wxUSE_FFILE.
func EnsureAny(id string, cond Expr, targets ...string) []Rule {
	full := And{cond}
	for _, t := range targets {
		full = append(full, Not{X: Ref(t)})
	}
	out := make([]Rule, 0, len(targets))
	for _, t := range targets {
		out = append(out, Rule{
			ID:        memberID(id, t, len(targets)),
			Group:     id,
			Condition: full,
			Target:    t,
			Value:     true,
			Severity:  SeverityErrorIfConflict,
			Form:      FormEnsureAny,
		})
	}
	return out
}

func memberID(id, target string, n int) string {
	if n == 1 {
		return id
	}
	return id + ":" + target
}
