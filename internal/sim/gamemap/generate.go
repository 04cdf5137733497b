package gamemap

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"serfcraft.dev/internal/sim/rng"
)

// GenConfig controls terrain generation.
type GenConfig struct {
	Size     int
	Seed     int64
	SeaLevel float64 // normalized elevation below which triangles are water
	Trees    int     // per mille of land tiles with a tree
	Stones   int     // per mille of land tiles with a stone pile
}

func DefaultGenConfig(size int, seed int64) GenConfig {
	return GenConfig{Size: size, Seed: seed, SeaLevel: 0.32, Trees: 90, Stones: 25}
}

// Generate builds a map from layered noise. Objects and minerals are drawn
// from r so a given seed always yields the same map.
func Generate(cfg GenConfig, r *rng.Random) (*Map, error) {
	m, err := New(cfg.Size)
	if err != nil {
		return nil, err
	}
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	moistNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	cols, rows := m.Cols(), m.Rows()

	// Noise does not wrap; the seam at the map edge is accepted.
	sample := func(n opensimplex.Noise, col, row int, freq float64) float64 {
		x := float64(col) + float64(row)*0.5
		y := float64(row) * math.Sqrt(3.0) / 2.0
		return octaveNoise(n, x, y, 4, freq, 0.5)
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			p := m.Pos(col, row)
			elev := sample(elevNoise, col, row, 0.06)
			moist := sample(moistNoise, col, row, 0.05)
			m.SetHeight(p, int(math.Round(elev*31)))
			up := terrainFor(elev, moist, cfg.SeaLevel)
			downElev := sample(elevNoise, col+1, row, 0.06)
			down := terrainFor((elev+downElev)/2, moist, cfg.SeaLevel)
			m.SetTerrain(p, up, down)
		}
	}

	for i := 0; i < m.Size(); i++ {
		p := m.PosAt(i)
		if m.IsWaterTile(p) {
			if m.IsInWater(p) && r.Next()%8 == 0 {
				m.SetMineral(p, MineralFish, 1+int(r.Next()%10))
			}
			continue
		}
		v := int(r.Next() % 1000)
		switch {
		case v < cfg.Trees:
			m.SetObject(p, ObjectTree0+Object(r.Next()%8), 0)
		case v < cfg.Trees+cfg.Stones:
			m.SetObject(p, ObjectStone0+Object(r.Next()%8), 0)
		}
		if m.Height(p) >= 20 {
			min := Mineral(1 + r.Next()%4)
			m.SetMineral(p, min, 1+int(r.Next()%16))
		}
	}
	return m, nil
}

func terrainFor(elev, moist, sea float64) Terrain {
	switch {
	case elev < sea-0.08:
		return TerrainWater3
	case elev < sea:
		return TerrainWater0
	case elev > 0.85:
		return TerrainSnow0
	case elev > 0.72:
		return TerrainTundra0 + Terrain(int((elev-0.72)*20)%3)
	case moist < 0.3:
		return TerrainDesert0 + Terrain(int(moist*10)%3)
	}
	return TerrainGrass0 + Terrain(int(moist*8)%4)
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
