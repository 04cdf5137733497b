package gamemap

// Terrain is the type of one map triangle.
type Terrain uint8

const (
	TerrainWater0 Terrain = iota
	TerrainWater1
	TerrainWater2
	TerrainWater3
	TerrainGrass0
	TerrainGrass1
	TerrainGrass2
	TerrainGrass3
	TerrainDesert0
	TerrainDesert1
	TerrainDesert2
	TerrainTundra0
	TerrainTundra1
	TerrainTundra2
	TerrainSnow0
	TerrainSnow1
)

func (t Terrain) IsWater() bool  { return t <= TerrainWater3 }
func (t Terrain) IsGrass() bool  { return t >= TerrainGrass0 && t <= TerrainGrass3 }
func (t Terrain) IsDesert() bool { return t >= TerrainDesert0 && t <= TerrainDesert2 }

// Object is the map object occupying a position.
type Object uint8

const (
	ObjectNone Object = iota
	ObjectFlag
	ObjectSmallBuilding
	ObjectLargeBuilding
	ObjectCastle

	ObjectTree0 // Tree0..Tree7; 4..7 are pines
	ObjectTree1
	ObjectTree2
	ObjectTree3
	ObjectTree4
	ObjectTree5
	ObjectTree6
	ObjectTree7

	ObjectNewTree // sapling planted by a forester
	ObjectNewPine

	ObjectStone0 // Stone0..Stone7, amount left is index+1
	ObjectStone1
	ObjectStone2
	ObjectStone3
	ObjectStone4
	ObjectStone5
	ObjectStone6
	ObjectStone7

	ObjectSeeds0 // Seeds0..Seeds5 grow into Field0
	ObjectSeeds1
	ObjectSeeds2
	ObjectSeeds3
	ObjectSeeds4
	ObjectSeeds5
	ObjectField0 // Field0..Field5 ripe for harvest
	ObjectField1
	ObjectField2
	ObjectField3
	ObjectField4
	ObjectField5
	ObjectFieldExpired

	ObjectStub
	ObjectCross

	ObjectSignLargeGold
	ObjectSignSmallGold
	ObjectSignLargeIron
	ObjectSignSmallIron
	ObjectSignLargeCoal
	ObjectSignSmallCoal
	ObjectSignLargeStone
	ObjectSignSmallStone
	ObjectSignEmpty
)

func (o Object) IsTree() bool  { return o >= ObjectTree0 && o <= ObjectTree7 }
func (o Object) IsStone() bool { return o >= ObjectStone0 && o <= ObjectStone7 }
func (o Object) IsField() bool { return o >= ObjectField0 && o <= ObjectField5 }
func (o Object) IsSeeds() bool { return o >= ObjectSeeds0 && o <= ObjectSeeds5 }
func (o Object) IsSign() bool  { return o >= ObjectSignLargeGold && o <= ObjectSignEmpty }

// Walkable reports whether a serf can cross a tile holding o off-road.
func (o Object) Walkable() bool {
	switch {
	case o == ObjectNone, o == ObjectFlag, o == ObjectStub, o == ObjectCross:
		return true
	case o.IsSeeds(), o.IsField(), o == ObjectFieldExpired, o.IsSign():
		return true
	case o == ObjectNewTree, o == ObjectNewPine:
		return true
	}
	return false
}

// Mineral is an underground deposit (or fish in water).
type Mineral uint8

const (
	MineralNone Mineral = iota
	MineralCoal
	MineralIron
	MineralGold
	MineralStone
	MineralFish
)

var mineralNames = [...]string{"none", "coal", "iron", "gold", "stone", "fish"}

func (m Mineral) String() string {
	if int(m) < len(mineralNames) {
		return mineralNames[m]
	}
	return "invalid"
}
