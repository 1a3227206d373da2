package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warfront/internal/game/dice"
)

func TestParseSpread(t *testing.T) {
	cases := []struct {
		in   string
		want dice.Spread
	}{
		{"d20", dice.Spread{Raw: "d20", Count: 1, Sides: 20}},
		{"2d6", dice.Spread{Raw: "2d6", Count: 2, Sides: 6}},
		{"2D6+3", dice.Spread{Raw: "2D6+3", Count: 2, Sides: 6, Offset: 3}},
		{" 1d11-6 ", dice.Spread{Raw: "1d11-6", Count: 1, Sides: 11, Offset: -6}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := dice.ParseSpread(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSpread_Errors(t *testing.T) {
	for _, in := range []string{"", "6", "0d6", "xd6", "2d1", "2d", "2d6+x"} {
		_, err := dice.ParseSpread(in)
		assert.Error(t, err, "input %q", in)
	}
	assert.Panics(t, func() { dice.MustParseSpread("nope") })
}

func TestSpread_Bounds(t *testing.T) {
	s := dice.MustParseSpread("1d11-6")
	assert.Equal(t, -5, s.Min())
	assert.Equal(t, 5, s.Max())
	assert.False(t, s.IsZero())
	assert.True(t, dice.Spread{}.IsZero())
}

func TestRoll_TotalAndString(t *testing.T) {
	r := dice.Roll{Spread: "1d11-6", Dice: []int{7}, Offset: -6}
	assert.Equal(t, 1, r.Total())
	assert.InDelta(t, 1.01, r.Factor(), 1e-9)
	assert.Equal(t, "1d11-6 -> [7] -6 = +1%", r.String())

	floor := dice.Roll{Dice: []int{1}, Offset: -300}
	assert.Zero(t, floor.Factor())
}

func TestProperty_RollSpread_WithinBounds(t *testing.T) {
	src := dice.NewSeededSource(7)
	rapid.Check(t, func(rt *rapid.T) {
		s := dice.Spread{
			Raw:    "gen",
			Count:  rapid.IntRange(1, 6).Draw(rt, "count"),
			Sides:  rapid.IntRange(2, 20).Draw(rt, "sides"),
			Offset: rapid.IntRange(-50, 50).Draw(rt, "offset"),
		}
		r := dice.RollSpread(s, src)
		if len(r.Dice) != s.Count {
			rt.Fatalf("rolled %d dice, want %d", len(r.Dice), s.Count)
		}
		if r.Total() < s.Min() || r.Total() > s.Max() {
			rt.Fatalf("total %d outside [%d,%d]", r.Total(), s.Min(), s.Max())
		}
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
	assert.Panics(t, func() { a.Intn(0) })
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestRoller_Factor(t *testing.T) {
	r := dice.NewRoller(dice.NewSeededSource(1), dice.MustParseSpread("1d11-6"), zap.NewNop())
	for i := 0; i < 200; i++ {
		f := r.Factor()
		assert.GreaterOrEqual(t, f, 0.95-1e-9)
		assert.LessOrEqual(t, f, 1.05+1e-9)
	}

	flat := dice.NewRoller(nil, dice.Spread{}, nil)
	assert.Equal(t, 1.0, flat.Factor())
	var none *dice.Roller
	assert.Equal(t, 1.0, none.Factor())
}
