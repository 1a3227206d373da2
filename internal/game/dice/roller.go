package dice

import (
	"fmt"

	"go.uber.org/zap"
)

// Roll is the audit trail of one spread roll.
//
// Postcondition: Total() == sum(Dice) + Offset.
type Roll struct {
	Spread string
	Dice   []int
	Offset int
}

// Total returns the sum of all dice plus the offset.
func (r Roll) Total() int {
	total := r.Offset
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// Factor returns the damage multiplier of the roll, 1 + Total/100, floored at zero.
func (r Roll) Factor() float64 {
	f := 1 + float64(r.Total())/100
	if f < 0 {
		return 0
	}
	return f
}

// String renders the roll as "1d11-6 -> [7] -6 = +1%".
func (r Roll) String() string {
	return fmt.Sprintf("%s -> %v %+d = %+d%%", r.Spread, r.Dice, r.Offset, r.Total())
}

// RollSpread rolls s with src.
//
// Precondition: s must come from ParseSpread; src must be non-nil.
// Postcondition: len(result.Dice) == s.Count and every die is in [1, s.Sides].
func RollSpread(s Spread, src Source) Roll {
	rolled := make([]int, s.Count)
	for i := range rolled {
		rolled[i] = src.Intn(s.Sides) + 1
	}
	return Roll{Spread: s.Raw, Dice: rolled, Offset: s.Offset}
}

// Roller rolls one spread with a Source and logs every roll at debug level.
// A Roller built with a zero Spread always returns a factor of 1.
type Roller struct {
	src    Source
	spread Spread
	logger *zap.Logger
}

// NewRoller creates a Roller for spread.
//
// Precondition: src must be non-nil unless spread is zero.
func NewRoller(src Source, spread Spread, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, spread: spread, logger: logger}
}

// Factor rolls the spread and returns its damage multiplier.
func (r *Roller) Factor() float64 {
	if r == nil || r.spread.IsZero() || r.src == nil {
		return 1
	}
	roll := RollSpread(r.spread, r.src)
	r.logger.Debug("damage spread roll",
		zap.String("spread", roll.Spread),
		zap.Ints("dice", roll.Dice),
		zap.Int("offset", roll.Offset),
		zap.Int("total", roll.Total()),
	)
	return roll.Factor()
}

// Spread returns the spread the Roller rolls.
func (r *Roller) Spread() Spread { return r.spread }
