package gamemap

import "serfcraft.dev/internal/sim/geom"

// SpiralRadius is the largest ring covered by the spiral table.
const SpiralRadius = 16

// spiral holds (col,row) offsets ordered by ring, each ring starting at its
// Up corner and running clockwise.
var spiral = buildSpiral(SpiralRadius)

func buildSpiral(radius int) [][2]int {
	out := make([][2]int, 0, 1+3*radius*(radius+1))
	out = append(out, [2]int{0, 0})
	for r := 1; r <= radius; r++ {
		uc, ur := Offset(geom.DirUp)
		c, row := uc*r, ur*r
		k := geom.DirUp
		for side := 0; side < geom.DirCount; side++ {
			walk := k.Turn(2)
			wc, wr := Offset(walk)
			for i := 0; i < r; i++ {
				out = append(out, [2]int{c, row})
				c += wc
				row += wr
			}
			k = k.Turn(1)
		}
	}
	return out
}

// SpiralLen is the number of entries in the spiral table.
func SpiralLen() int { return len(spiral) }

// SpiralRingStart returns the table index where ring r begins.
func SpiralRingStart(r int) int {
	if r <= 0 {
		return 0
	}
	return 1 + 3*(r-1)*r
}

// Spiral returns the offset of entry i.
func Spiral(i int) (int, int) {
	o := spiral[i]
	return o[0], o[1]
}

// PosAddSpirally returns the position of spiral entry i around p.
func (m *Map) PosAddSpirally(p Pos, i int) Pos {
	o := spiral[i]
	return m.PosAdd(p, o[0], o[1])
}
