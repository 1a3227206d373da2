// Package dice provides the randomness that varies combat damage: a Source of
// random integers and spread expressions such as "2d6-7", whose rolled total is
// a percentage adjustment applied to a damage amount.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the randomness provider for spread rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Spread is a parsed variance expression. Rolling it yields a percentage
// adjustment: "1d11-6" varies damage by -5% to +5%.
//
// Invariant: Count >= 1 and Sides >= 2 after a successful ParseSpread.
type Spread struct {
	Raw    string
	Count  int
	Sides  int
	Offset int
}

// ParseSpread parses "d20", "2d6", "2d6+3" or "1d11-6".
//
// Precondition: expr must be non-empty.
// Postcondition: Returns a valid Spread or a descriptive error.
func ParseSpread(expr string) (Spread, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Spread{}, fmt.Errorf("dice: empty spread expression")
	}
	s := strings.ToLower(raw)

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Spread{}, fmt.Errorf("dice: missing 'd' in spread %q", raw)
	}

	count := 1
	if dIdx > 0 {
		n, err := strconv.Atoi(s[:dIdx])
		if err != nil {
			return Spread{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if n <= 0 {
			return Spread{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
		count = n
	}

	rest := s[dIdx+1:]
	sidesStr, offsetStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i > 0 {
		sidesStr, offsetStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Spread{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Spread{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	offset := 0
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return Spread{}, fmt.Errorf("dice: invalid offset in %q: %w", raw, err)
		}
	}
	return Spread{Raw: raw, Count: count, Sides: sides, Offset: offset}, nil
}

// MustParseSpread parses expr and panics on error. Useful for package-level defaults.
func MustParseSpread(expr string) Spread {
	s, err := ParseSpread(expr)
	if err != nil {
		panic("dice: MustParseSpread failed for " + expr + ": " + err.Error())
	}
	return s
}

// Min returns the lowest total the spread can roll.
func (s Spread) Min() int { return s.Count + s.Offset }

// Max returns the highest total the spread can roll.
func (s Spread) Max() int { return s.Count*s.Sides + s.Offset }

// IsZero reports whether s is the unset Spread.
func (s Spread) IsZero() bool { return s.Count == 0 }
