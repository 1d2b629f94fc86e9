package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(on ...string) Env {
	set := make(map[string]bool, len(on))
	for _, n := range on {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name string
		in   string
		on   []string
		want bool
	}{
		{"single flag on", "wxUSE_STREAMS", []string{"wxUSE_STREAMS"}, true},
		{"single flag off", "wxUSE_STREAMS", nil, false},
		{"c-style or", "wxUSE_PROTOCOL_FILE || wxUSE_PROTOCOL_FTP || wxUSE_PROTOCOL_HTTP", []string{"wxUSE_PROTOCOL_FTP"}, true},
		{"c-style and not", "wxUSE_FILESYSTEM && !wxUSE_FILE && !wxUSE_FFILE", []string{"wxUSE_FILESYSTEM"}, true},
		{"c-style and not blocked", "wxUSE_FILESYSTEM && !wxUSE_FILE && !wxUSE_FFILE", []string{"wxUSE_FILESYSTEM", "wxUSE_FFILE"}, false},
		{"keywords", "wxUSE_ARCHIVE_STREAMS and not wxUSE_DATETIME", []string{"wxUSE_ARCHIVE_STREAMS"}, true},
		{"parentheses", "(wxUSE_A or wxUSE_B) and wxUSE_C", []string{"wxUSE_B"}, false},
		{"equals one", "wxUSE_GUI = 1", []string{"wxUSE_GUI"}, true},
		{"equals zero", "wxUSE_GUI = 0", nil, true},
		{"not equal one", "wxUSE_GUI != 1", []string{"wxUSE_GUI"}, false},
		{"literal on the left", "0 = wxUSE_GUI", nil, true},
		{"is false", "wxUSE_GUI is false", nil, true},
		{"is not true", "wxUSE_GUI is not true", []string{"wxUSE_GUI"}, false},
		{"true literal", "true", nil, true},
		{"false literal", "false", []string{"wxUSE_GUI"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Eval(envOf(tt.on...)))
		})
	}
}

func TestParseCondition_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", "   "},
		{"syntax", "wxUSE_A &&"},
		{"arithmetic", "wxUSE_A + 1"},
		{"ordering comparison", "wxUSE_A > 0"},
		{"unsupported literal", "wxUSE_A = 2"},
		{"string literal", "wxUSE_A = 'yes'"},
		{"qualified name", "t.wxUSE_A"},
		{"trailing clause", "wxUSE_A order by wxUSE_B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.in)
			require.Error(t, err)
		})
	}
}

func TestParseCondition_KeepsCase(t *testing.T) {
	e, err := ParseCondition("wxUSE_Streams && !wxNO_THREADS")
	require.NoError(t, err)
	assert.Equal(t, []string{"wxNO_THREADS", "wxUSE_Streams"}, Refs(e))
}

func TestParseCondition_KeywordNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		refs []string
		on   []string
		want bool
	}{
		{"key and order", "key && !order", []string{"key", "order"}, []string{"key"}, true},
		{"select compared", "select = 1", []string{"select"}, []string{"select"}, true},
		{"mixed case keyword", "Table or wxUSE_A", []string{"Table", "wxUSE_A"}, nil, false},
		{"already quoted", "`limit` is true", []string{"limit"}, []string{"limit"}, true},
		{"keyword tests kept", "where is not false", []string{"where"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.refs, Refs(e))
			assert.Equal(t, tt.want, e.Eval(envOf(tt.on...)))

			again, err := ParseCondition(e.String())
			require.NoError(t, err)
			assert.Equal(t, e.String(), again.String())
		})
	}
}

func TestQuoteIdents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"key && !order", "`key` && !`order`"},
		{"wxUSE_A AND NOT wxUSE_B", "`wxUSE_A` AND NOT `wxUSE_B`"},
		{"wxUSE_A = 1", "`wxUSE_A` = 1"},
		{"wxUSE_A = 'yes'", "`wxUSE_A` = 'yes'"},
		{"`key` is true", "`key` is true"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteIdents(tt.in))
		})
	}
}

func TestExpr_StringRoundTrips(t *testing.T) {
	inputs := []string{
		"wxUSE_FILESYSTEM && !wxUSE_FILE && !wxUSE_FFILE",
		"(wxUSE_A || wxUSE_B) && !(wxUSE_C && wxUSE_D)",
		"wxUSE_STOPWATCH || wxUSE_DATETIME",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			e, err := ParseCondition(in)
			require.NoError(t, err)

			again, err := ParseCondition(e.String())
			require.NoError(t, err)
			assert.Equal(t, e.String(), again.String())
		})
	}
}

func TestMustParseCondition_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseCondition("wxUSE_A ||") })
}

func TestEmptyCombinators(t *testing.T) {
	env := envOf()
	assert.True(t, And{}.Eval(env))
	assert.False(t, Or{}.Eval(env))
	assert.True(t, NoneOf("wxUSE_A", "wxUSE_B").Eval(env))
	assert.False(t, AllOf("wxUSE_A").Eval(env))
	assert.True(t, AnyOf("wxUSE_A", "wxUSE_B").Eval(envOf("wxUSE_B")))
}
