// Package gamemap is the position store of the game: a wrapping hex grid of
// tiles carrying terrain, objects, paths, ownership and occupancy.
package gamemap

import (
	"fmt"

	"serfcraft.dev/internal/sim/geom"
)

// Pos addresses a tile: row<<rowShift | col.
type Pos uint32

const BadPos Pos = 0xffffffff

type Tile struct {
	Paths    uint8 // one bit per direction
	Owner    int   // player index, -1 when unowned
	Height   uint8
	TypeUp   Terrain
	TypeDown Terrain
	Object   Object
	ObjIndex uint32 // flag or building index for those objects
	Serf     uint32 // serf standing here, 0 for none
	IdleSerf bool   // an idle transporter is parked on the path here
	Mineral  Mineral
	Amount   uint8
}

type Map struct {
	cols, rows uint32
	colMask    uint32
	rowMask    uint32
	rowShift   uint32
	tiles      []Tile
}

// New makes an empty map with (16<<size) columns and rows. Everything starts
// as unowned grass at height 10.
func New(size int) (*Map, error) {
	if size < 1 || size > 6 {
		return nil, fmt.Errorf("gamemap: size %d out of range", size)
	}
	dim := uint32(16) << uint(size)
	shift := uint32(0)
	for (uint32(1) << shift) < dim {
		shift++
	}
	m := &Map{
		cols:     dim,
		rows:     dim,
		colMask:  dim - 1,
		rowMask:  dim - 1,
		rowShift: shift,
		tiles:    make([]Tile, dim*dim),
	}
	for i := range m.tiles {
		m.tiles[i] = Tile{Owner: -1, Height: 10, TypeUp: TerrainGrass1, TypeDown: TerrainGrass1}
	}
	return m, nil
}

func (m *Map) Cols() int { return int(m.cols) }
func (m *Map) Rows() int { return int(m.rows) }

// Size is the number of tiles.
func (m *Map) Size() int { return len(m.tiles) }

func (m *Map) Pos(col, row int) Pos {
	c := uint32(col) & m.colMask
	r := uint32(row) & m.rowMask
	return Pos(r<<m.rowShift | c)
}

func (m *Map) Col(p Pos) int { return int(uint32(p) & m.colMask) }
func (m *Map) Row(p Pos) int { return int((uint32(p) >> m.rowShift) & m.rowMask) }

// Index converts a position into a dense tile index.
func (m *Map) Index(p Pos) int { return m.Row(p)*int(m.cols) + m.Col(p) }

// PosAt is the inverse of Index.
func (m *Map) PosAt(i int) Pos { return m.Pos(i%int(m.cols), i/int(m.cols)) }

var dirOffsets = [geom.DirCount][2]int{
	geom.DirRight:     {1, 0},
	geom.DirDownRight: {1, 1},
	geom.DirDown:      {0, 1},
	geom.DirLeft:      {-1, 0},
	geom.DirUpLeft:    {-1, -1},
	geom.DirUp:        {0, -1},
}

// Offset returns the column/row step of d.
func Offset(d geom.Direction) (int, int) {
	o := dirOffsets[d]
	return o[0], o[1]
}

func (m *Map) Move(p Pos, d geom.Direction) Pos {
	o := dirOffsets[d]
	return m.Pos(m.Col(p)+o[0], m.Row(p)+o[1])
}

func (m *Map) PosAdd(p Pos, dc, dr int) Pos {
	return m.Pos(m.Col(p)+dc, m.Row(p)+dr)
}

func (m *Map) wrapDelta(d int, n uint32) int {
	half := int(n) / 2
	d %= int(n)
	if d >= half {
		d -= int(n)
	} else if d < -half {
		d += int(n)
	}
	return d
}

// DistX is the signed wrapped column distance from a to b.
func (m *Map) DistX(a, b Pos) int { return m.wrapDelta(m.Col(b)-m.Col(a), m.cols) }

// DistY is the signed wrapped row distance from a to b.
func (m *Map) DistY(a, b Pos) int { return m.wrapDelta(m.Row(b)-m.Row(a), m.rows) }

// Dist is the hex step distance between a and b.
func (m *Map) Dist(a, b Pos) int {
	dx, dy := m.DistX(a, b), m.DistY(a, b)
	if (dx >= 0) == (dy >= 0) {
		return maxInt(absInt(dx), absInt(dy))
	}
	return absInt(dx) + absInt(dy)
}

func (m *Map) tile(p Pos) *Tile { return &m.tiles[m.Index(p)] }

// Tile returns a copy of the tile at p.
func (m *Map) Tile(p Pos) Tile { return *m.tile(p) }

// SetTile overwrites the tile at p.
func (m *Map) SetTile(p Pos, t Tile) { *m.tile(p) = t }

func (m *Map) Paths(p Pos) uint8 { return m.tile(p).Paths }

func (m *Map) HasPath(p Pos, d geom.Direction) bool { return m.tile(p).Paths&d.Bit() != 0 }

func (m *Map) AddPath(p Pos, d geom.Direction) { m.tile(p).Paths |= d.Bit() }

func (m *Map) DelPath(p Pos, d geom.Direction) { m.tile(p).Paths &^= d.Bit() }

// PathCount is the number of path directions leaving p.
func (m *Map) PathCount(p Pos) int {
	n := 0
	for v := m.tile(p).Paths; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (m *Map) Object(p Pos) Object { return m.tile(p).Object }

func (m *Map) ObjIndex(p Pos) uint32 { return m.tile(p).ObjIndex }

func (m *Map) SetObject(p Pos, o Object, index uint32) {
	t := m.tile(p)
	t.Object = o
	t.ObjIndex = index
}

func (m *Map) HasFlag(p Pos) bool { return m.tile(p).Object == ObjectFlag }

func (m *Map) HasBuilding(p Pos) bool {
	o := m.tile(p).Object
	return o == ObjectSmallBuilding || o == ObjectLargeBuilding || o == ObjectCastle
}

func (m *Map) SerfIndex(p Pos) uint32 { return m.tile(p).Serf }

func (m *Map) HasSerf(p Pos) bool { return m.tile(p).Serf != 0 }

func (m *Map) SetSerfIndex(p Pos, index uint32) { m.tile(p).Serf = index }

func (m *Map) IdleSerf(p Pos) bool { return m.tile(p).IdleSerf }

func (m *Map) SetIdleSerf(p Pos, v bool) { m.tile(p).IdleSerf = v }

func (m *Map) Owner(p Pos) int { return m.tile(p).Owner }

func (m *Map) HasOwner(p Pos) bool { return m.tile(p).Owner >= 0 }

func (m *Map) SetOwner(p Pos, player int) { m.tile(p).Owner = player }

func (m *Map) Height(p Pos) int { return int(m.tile(p).Height) }

func (m *Map) SetHeight(p Pos, h int) { m.tile(p).Height = uint8(h) }

func (m *Map) TypeUp(p Pos) Terrain   { return m.tile(p).TypeUp }
func (m *Map) TypeDown(p Pos) Terrain { return m.tile(p).TypeDown }

func (m *Map) SetTerrain(p Pos, up, down Terrain) {
	t := m.tile(p)
	t.TypeUp = up
	t.TypeDown = down
}

// around lists the six triangles touching p.
func (m *Map) around(p Pos) [6]Terrain {
	l := m.Move(p, geom.DirLeft)
	ul := m.Move(p, geom.DirUpLeft)
	u := m.Move(p, geom.DirUp)
	return [6]Terrain{
		m.TypeUp(p), m.TypeDown(p), m.TypeDown(l),
		m.TypeUp(ul), m.TypeDown(ul), m.TypeUp(u),
	}
}

// IsInWater reports whether every triangle around p is water.
func (m *Map) IsInWater(p Pos) bool {
	for _, t := range m.around(p) {
		if !t.IsWater() {
			return false
		}
	}
	return true
}

// IsWaterTile reports whether any triangle around p is water.
func (m *Map) IsWaterTile(p Pos) bool {
	for _, t := range m.around(p) {
		if t.IsWater() {
			return true
		}
	}
	return false
}

// IsWalkable reports whether a serf may stand at p off-road.
func (m *Map) IsWalkable(p Pos) bool {
	if m.IsInWater(p) {
		return false
	}
	return m.Object(p).Walkable()
}

func (m *Map) Mineral(p Pos) (Mineral, int) {
	t := m.tile(p)
	return t.Mineral, int(t.Amount)
}

func (m *Map) SetMineral(p Pos, min Mineral, amount int) {
	t := m.tile(p)
	t.Mineral = min
	t.Amount = uint8(amount)
}

// RemoveMineral takes one unit of min at p and reports whether there was one.
func (m *Map) RemoveMineral(p Pos, min Mineral) bool {
	t := m.tile(p)
	if t.Mineral != min || t.Amount == 0 {
		return false
	}
	t.Amount--
	if t.Amount == 0 {
		t.Mineral = MineralNone
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
