// Package hex provides axial hex-grid coordinates.
package hex

import "fmt"

// Coord is an axial hex coordinate.
type Coord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

var directions = [6]Coord{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

// Neighbors returns the six adjacent coordinates in a fixed clockwise order.
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, d := range directions {
		out[i] = Coord{Q: c.Q + d.Q, R: c.R + d.R}
	}
	return out
}

// Distance returns the number of hex steps between c and o.
//
// Postcondition: Returns >= 0; Distance(c, c) == 0.
func (c Coord) Distance(o Coord) int {
	dq := c.Q - o.Q
	dr := c.R - o.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

// Adjacent reports whether o is one step from c.
func (c Coord) Adjacent(o Coord) bool { return c.Distance(o) == 1 }

// String returns the coordinate as "(q,r)".
func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Q, c.R) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
