package entitlement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode(0o644)
	require.NoError(t, err)
	assert.Equal(t, Mode(0o644), m)

	for _, v := range []int64{-1, 0o1000, 4096} {
		_, err := ParseMode(v)
		var modeErr *ModeError
		require.True(t, errors.As(err, &modeErr), "value %d", v)
		assert.Equal(t, v, modeErr.Value)
	}
}

func TestModeAllows(t *testing.T) {
	cases := []struct {
		granted   Mode
		requested Mode
		allowed   bool
	}{
		{0o600, 0o600, true},
		{0o600, 0o400, true},
		{0o600, 0o000, true},
		{0o600, 0o700, false},
		{0o600, 0o644, false},
		// execute is not implied by read+write, even though 5 < 6
		{0o600, 0o500, false},
		{0o755, 0o755, true},
		{0o755, 0o711, true},
		{0o755, 0o766, false},
		{0o777, 0o777, true},
		{0o000, 0o001, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, c.granted.Allows(c.requested), "%s allows %s", c.granted, c.requested)
	}
}

func TestModeAllowsIsSubset(t *testing.T) {
	for g := Mode(0); g <= MaxMode; g += 0o21 {
		for r := Mode(0); r <= MaxMode; r++ {
			assert.Equal(t, r&^g == 0, g.Allows(r), "%s allows %s", g, r)
		}
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "0o600", DefaultMode.String())
	assert.Equal(t, "0o007", Mode(7).String())
}
