package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr error
	}{
		{in: "@bob_99", want: Target{Handle: "@bob_99"}},
		{in: "  555 ", want: Target{ID: 555}},
		{in: "-100123", want: Target{ID: -100123}},
		{in: "", wantErr: ErrEmptyTarget},
		{in: "@", wantErr: ErrInvalidTarget},
		{in: "@bad name", wantErr: ErrInvalidTarget},
		{in: "@../etc", wantErr: ErrInvalidTarget},
		{in: "bob", wantErr: ErrInvalidTarget},
		{in: "0", wantErr: ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "@x", Target{Handle: "@x"}.String())
	assert.Equal(t, "42", Target{ID: 42}.String())
	assert.True(t, Target{Handle: "@x"}.IsHandle())
	assert.False(t, Target{ID: 1}.IsHandle())
}
