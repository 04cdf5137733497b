package world

import (
	"serfcraft.dev/internal/sim/encoding"
	"serfcraft.dev/internal/sim/gamemap"
)

// MapLayers is a compact view of the map for observers. Every layer holds
// one value per tile in row-major order, RLE encoded.
type MapLayers struct {
	Tick uint32 `json:"tick"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	// Owners is the owning player index plus one; 0 is unowned.
	Owners  string `json:"owners"`
	Objects string `json:"objects"`
	Paths   string `json:"paths"`
	Heights string `json:"heights"`
}

func (g *Game) MapLayers() MapLayers {
	n := g.m.Size()
	owners := make([]uint16, n)
	objects := make([]uint16, n)
	paths := make([]uint16, n)
	heights := make([]uint16, n)
	for i := 0; i < n; i++ {
		p := g.m.PosAt(i)
		t := g.m.Tile(p)
		owners[i] = uint16(t.Owner + 1)
		objects[i] = uint16(t.Object)
		paths[i] = uint16(t.Paths)
		heights[i] = uint16(t.Height)
	}
	return MapLayers{
		Tick:    g.tick,
		Cols:    g.m.Cols(),
		Rows:    g.m.Rows(),
		Owners:  encoding.EncodeRLE(owners),
		Objects: encoding.EncodeRLE(objects),
		Paths:   encoding.EncodeRLE(paths),
		Heights: encoding.EncodeRLE(heights),
	}
}

// OwnerAt decodes the owner layer at (col, row); -1 is unowned.
func (l MapLayers) OwnerAt(col, row int) (int, error) {
	owners, err := encoding.DecodeLayer(l.Owners, l.Cols*l.Rows)
	if err != nil {
		return 0, err
	}
	return int(owners[row*l.Cols+col]) - 1, nil
}

// ObjectAt decodes the object layer at (col, row).
func (l MapLayers) ObjectAt(col, row int) (gamemap.Object, error) {
	objs, err := encoding.DecodeLayer(l.Objects, l.Cols*l.Rows)
	if err != nil {
		return 0, err
	}
	return gamemap.Object(objs[row*l.Cols+col]), nil
}
