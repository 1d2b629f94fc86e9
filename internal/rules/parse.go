package rules

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// ParseCondition parses a condition such as
//
//	wxUSE_PROTOCOL_FILE || wxUSE_PROTOCOL_FTP || wxUSE_PROTOCOL_HTTP
//	wxUSE_FILESYSTEM && !wxUSE_FILE && !wxUSE_FFILE
//	wxUSE_ARCHIVE_STREAMS and not wxUSE_DATETIME
//	wxUSE_GUI = 1
//
// The grammar is the boolean subset of a SQL WHERE clause: and/&&, or/||,
// not/!, parentheses, comparisons of a flag with 0/1/true/false, IS TRUE,
// IS FALSE and the literals true and false. Flag names are case-sensitive
// and may collide with SQL keywords (key, order, select).
func ParseCondition(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty condition")
	}

	stmt, err := sqlparser.Parse("select 1 from dual where " + quoteIdents(s))
	if err != nil {
		return nil, fmt.Errorf("cannot parse condition %q: %w", s, err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil || sel.Where.Expr == nil {
		return nil, fmt.Errorf("cannot parse condition %q", s)
	}
	if len(sel.GroupBy) > 0 || sel.Having != nil || len(sel.OrderBy) > 0 || sel.Limit != nil {
		return nil, fmt.Errorf("condition %q contains trailing clauses", s)
	}

	return lower(sel.Where.Expr)
}

// MustParseCondition is like ParseCondition but panics on error. It is meant
// for rule tables compiled into the program.
func MustParseCondition(s string) Expr {
	e, err := ParseCondition(s)
	if err != nil {
		panic(err)
	}
	return e
}

// conditionWords are the bare words the condition grammar keeps as keywords.
var conditionWords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "true": true, "false": true,
}

// quoteIdents backtick-quotes every bare word of s that is not a condition
// keyword, so flag names never parse as SQL keywords. Numbers, quoted strings
// and already quoted names are copied unchanged.
func quoteIdents(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(s) && s[j] != c {
				j++
			}
			if j < len(s) {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			word := s[i:j]
			if isDigit(c) || conditionWords[strings.ToLower(word)] {
				b.WriteString(word)
			} else {
				b.WriteByte('`')
				b.WriteString(word)
				b.WriteByte('`')
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func lower(node sqlparser.Expr) (Expr, error) {
	switch n := node.(type) {
	case *sqlparser.AndExpr:
		l, err := lower(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := lower(n.Right)
		if err != nil {
			return nil, err
		}
		return flattenAnd(l, r), nil

	case *sqlparser.OrExpr:
		l, err := lower(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := lower(n.Right)
		if err != nil {
			return nil, err
		}
		return flattenOr(l, r), nil

	case *sqlparser.NotExpr:
		x, err := lower(n.Expr)
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil

	case *sqlparser.UnaryExpr:
		if n.Operator != sqlparser.BangStr {
			return nil, fmt.Errorf("unsupported operator %q", n.Operator)
		}
		x, err := lower(n.Expr)
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil

	case *sqlparser.ParenExpr:
		return lower(n.Expr)

	case *sqlparser.ColName:
		if !n.Qualifier.IsEmpty() {
			return nil, fmt.Errorf("qualified name %s is not a flag", sqlparser.String(n))
		}
		return Ref(n.Name.String()), nil

	case sqlparser.BoolVal:
		return Const(bool(n)), nil

	case *sqlparser.SQLVal:
		b, err := literal(n)
		if err != nil {
			return nil, err
		}
		return Const(b), nil

	case *sqlparser.ComparisonExpr:
		return lowerComparison(n)

	case *sqlparser.IsExpr:
		x, err := lower(n.Expr)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case sqlparser.IsTrueStr, sqlparser.IsNotFalseStr:
			return x, nil
		case sqlparser.IsFalseStr, sqlparser.IsNotTrueStr:
			return Not{X: x}, nil
		default:
			return nil, fmt.Errorf("unsupported test %q", n.Operator)
		}

	default:
		return nil, fmt.Errorf("unsupported expression %q", sqlparser.String(node))
	}
}

// lowerComparison accepts NAME = v and NAME != v (either side) where v is
// 0, 1, true or false.
func lowerComparison(n *sqlparser.ComparisonExpr) (Expr, error) {
	if n.Operator != sqlparser.EqualStr && n.Operator != sqlparser.NotEqualStr {
		return nil, fmt.Errorf("unsupported comparison %q", n.Operator)
	}

	col, val := n.Left, n.Right
	if _, ok := col.(*sqlparser.ColName); !ok {
		col, val = val, col
	}
	name, ok := col.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("comparison %q must compare a flag with a value", sqlparser.String(n))
	}
	ref, err := lower(name)
	if err != nil {
		return nil, err
	}

	var want bool
	switch v := val.(type) {
	case sqlparser.BoolVal:
		want = bool(v)
	case *sqlparser.SQLVal:
		if want, err = literal(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("comparison %q must compare a flag with 0 or 1", sqlparser.String(n))
	}

	if n.Operator == sqlparser.NotEqualStr {
		want = !want
	}
	if want {
		return ref, nil
	}
	return Not{X: ref}, nil
}

func literal(v *sqlparser.SQLVal) (bool, error) {
	if v.Type == sqlparser.IntVal {
		switch string(v.Val) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	}
	return false, fmt.Errorf("unsupported literal %q (use 0, 1, true or false)", string(v.Val))
}

func flattenAnd(l, r Expr) Expr {
	out := And{}
	for _, x := range []Expr{l, r} {
		if a, ok := x.(And); ok {
			out = append(out, a...)
			continue
		}
		out = append(out, x)
	}
	return out
}

func flattenOr(l, r Expr) Expr {
	out := Or{}
	for _, x := range []Expr{l, r} {
		if o, ok := x.(Or); ok {
			out = append(out, o...)
			continue
		}
		out = append(out, x)
	}
	return out
}
