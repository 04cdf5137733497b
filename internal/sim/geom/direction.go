package geom

import "fmt"

// Direction is one of the six hex neighbours of a map position.
type Direction int

const (
	DirNone Direction = -1

	DirRight     Direction = 0
	DirDownRight Direction = 1
	DirDown      Direction = 2
	DirLeft      Direction = 3
	DirUpLeft    Direction = 4
	DirUp        Direction = 5
)

const DirCount = 6

var dirNames = [DirCount]string{"right", "down_right", "down", "left", "up_left", "up"}

func (d Direction) String() string {
	if !d.Valid() {
		return "none"
	}
	return dirNames[d]
}

// Valid reports whether d is one of the six real directions.
func (d Direction) Valid() bool { return d >= DirRight && d <= DirUp }

// Reverse returns the opposite direction. Reverse(Reverse(d)) == d.
func (d Direction) Reverse() Direction {
	if !d.Valid() {
		panic(fmt.Sprintf("geom: reverse of invalid direction %d", int(d)))
	}
	return (d + 3) % DirCount
}

// Bit returns the path/endpoint bit of d.
func (d Direction) Bit() uint8 { return 1 << uint(d) }

// Turn rotates d by n steps clockwise (negative n turns counter-clockwise).
func (d Direction) Turn(n int) Direction {
	v := (int(d) + n) % DirCount
	if v < 0 {
		v += DirCount
	}
	return Direction(v)
}

// CW returns the six directions in clockwise order starting at start.
func CW(start Direction) [DirCount]Direction {
	var out [DirCount]Direction
	for i := 0; i < DirCount; i++ {
		out[i] = start.Turn(i)
	}
	return out
}

// CCW returns the six directions in counter-clockwise order starting at start.
func CCW(start Direction) [DirCount]Direction {
	var out [DirCount]Direction
	for i := 0; i < DirCount; i++ {
		out[i] = start.Turn(-i)
	}
	return out
}

// Fixed scan orders. Search tie-breaks depend on these exactly.
var (
	CycleCW  = CW(DirRight)
	CycleCCW = CCW(DirUp)
)

// ParseDirection maps a name produced by String back to a Direction.
func ParseDirection(s string) (Direction, error) {
	for i, n := range dirNames {
		if n == s {
			return Direction(i), nil
		}
	}
	if s == "none" || s == "" {
		return DirNone, nil
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}
