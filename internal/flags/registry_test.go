package flags

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonica-labs/chkconf/internal/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Declare("wxUSE_STREAMS", False, "stream classes"))
	require.NoError(t, r.Declare("wxUSE_FILESYSTEM", False, ""))
	require.NoError(t, r.Declare("wxUSE_PROTOCOL_HTTP", Unset, ""))
	return r
}

func TestRegistry_GetUnknownFlag(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("wxUSE_streams")
	require.Error(t, err)

	var unknown *errors.ErrUnknownFlag
	require.True(t, stderrors.As(err, &unknown))
	assert.Equal(t, "wxUSE_streams", unknown.Flag)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestRegistry_DeclareDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Declare("wxUSE_STREAMS", True, "")
	var dup *errors.ErrDuplicateFlag
	require.True(t, stderrors.As(err, &dup))
	assert.Equal(t, "wxUSE_STREAMS", dup.Flag)
}

func TestRegistry_SetPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		first      Origin
		second     Origin
		wantStatus SetStatus
		wantValue  Value
		wantOrigin Origin
	}{
		{"derived over default", OriginDefault, OriginDerived, SetApplied, False, OriginDerived},
		{"user over derived", OriginDerived, OriginUser, SetApplied, False, OriginUser},
		{"derived under user is ignored", OriginUser, OriginDerived, SetIgnored, True, OriginUser},
		{"default under derived is ignored", OriginDerived, OriginDefault, SetIgnored, True, OriginDerived},
		{"equal precedence overwrites", OriginDerived, OriginDerived, SetApplied, False, OriginDerived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			status, err := r.Set("wxUSE_STREAMS", True, tt.first)
			require.NoError(t, err)
			if tt.first == OriginDefault {
				assert.Equal(t, SetApplied, status)
			}

			status, err = r.Set("wxUSE_STREAMS", False, tt.second)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)

			f, err := r.Lookup("wxUSE_STREAMS")
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, f.Value)
			assert.Equal(t, tt.wantOrigin, f.Origin)
		})
	}
}

func TestRegistry_SetUnchanged(t *testing.T) {
	r := newTestRegistry(t)

	status, err := r.Set("wxUSE_STREAMS", False, OriginDefault)
	require.NoError(t, err)
	assert.Equal(t, SetUnchanged, status)
}

func TestRegistry_OverrideDemotesUserValue(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Set("wxUSE_STREAMS", True, OriginUser)
	require.NoError(t, err)

	require.NoError(t, r.Override("wxUSE_STREAMS", False))

	f, err := r.Lookup("wxUSE_STREAMS")
	require.NoError(t, err)
	assert.Equal(t, False, f.Value)
	assert.Equal(t, OriginDerived, f.Origin)
}

func TestRegistry_AllIsSortedByName(t *testing.T) {
	r := newTestRegistry(t)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "wxUSE_FILESYSTEM", all[0].Name)
	assert.Equal(t, "wxUSE_PROTOCOL_HTTP", all[1].Name)
	assert.Equal(t, "wxUSE_STREAMS", all[2].Name)
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := newTestRegistry(t)
	c := r.Clone()

	_, err := c.Set("wxUSE_STREAMS", True, OriginUser)
	require.NoError(t, err)

	v, err := r.Get("wxUSE_STREAMS")
	require.NoError(t, err)
	assert.Equal(t, False, v)
}

func TestRegistry_FreezeRejectsMutation(t *testing.T) {
	r := newTestRegistry(t)
	snap := r.Freeze()

	_, err := r.Set("wxUSE_STREAMS", True, OriginUser)
	var frozen *errors.ErrFrozen
	require.True(t, stderrors.As(err, &frozen))

	require.Error(t, r.Override("wxUSE_STREAMS", True))
	require.Error(t, r.Declare("wxUSE_NEW", False, ""))

	enabled, err := snap.IsEnabled("wxUSE_STREAMS")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSnapshot_UnknownFlag(t *testing.T) {
	snap := newTestRegistry(t).Freeze()

	_, err := snap.IsEnabled("wxUSE_GUI")
	var unknown *errors.ErrUnknownFlag
	require.True(t, stderrors.As(err, &unknown))
}

func TestSnapshot_ConcurrentReads(t *testing.T) {
	snap := newTestRegistry(t).Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = snap.IsEnabled("wxUSE_FILESYSTEM")
				_ = snap.Map()
			}
		}()
	}
	wg.Wait()
}

func TestSnapshot_ThawKeepsOrigins(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Set("wxUSE_FILESYSTEM", True, OriginUser)
	require.NoError(t, err)

	thawed := r.Freeze().Thaw()
	f, err := thawed.Lookup("wxUSE_FILESYSTEM")
	require.NoError(t, err)
	assert.Equal(t, OriginUser, f.Origin)
	assert.False(t, thawed.Frozen())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{"1", True, false},
		{"on", True, false},
		{"TRUE", True, false},
		{"0", False, false},
		{"off", False, false},
		{"unset", Unset, false},
		{"2", Unset, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		want     Value
		wantErr  bool
	}{
		{"wxUSE_GUI=1", "wxUSE_GUI", True, false},
		{" wxUSE_GUI = off ", "wxUSE_GUI", False, false},
		{"wxUSE_URL", "wxUSE_URL", True, false},
		{"wxUSE_URL=unset", "", Unset, true},
		{"wxUSE_URL=", "", Unset, true},
		{"=1", "", Unset, true},
		{"wxUSE_URL=maybe", "", Unset, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, v, err := ParseAssignment(tt.in)
			if tt.wantErr {
				var invalid *errors.ErrInvalidOverride
				require.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.want, v)
		})
	}
}
