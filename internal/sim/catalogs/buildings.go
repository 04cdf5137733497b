package catalogs

import "fmt"

type BuildingType int

const (
	BuildingNone BuildingType = iota
	BuildingFisher
	BuildingLumberjack
	BuildingBoatBuilder
	BuildingStonecutter
	BuildingStoneMine
	BuildingCoalMine
	BuildingIronMine
	BuildingGoldMine
	BuildingForester
	BuildingStock
	BuildingHut
	BuildingFarm
	BuildingButcher
	BuildingPigFarm
	BuildingMill
	BuildingBaker
	BuildingSawmill
	BuildingSteelSmelter
	BuildingToolMaker
	BuildingWeaponSmith
	BuildingTower
	BuildingFortress
	BuildingGoldSmelter
	BuildingCastle
)

const BuildingTypeCount = int(BuildingCastle) + 1

var buildingNames = [BuildingTypeCount]string{
	"none", "fisher", "lumberjack", "boat_builder", "stonecutter", "stone_mine", "coal_mine",
	"iron_mine", "gold_mine", "forester", "stock", "hut", "farm", "butcher", "pig_farm",
	"mill", "baker", "sawmill", "steel_smelter", "tool_maker", "weapon_smith", "tower",
	"fortress", "gold_smelter", "castle",
}

func (t BuildingType) String() string {
	if t < 0 || int(t) >= BuildingTypeCount {
		return "invalid"
	}
	return buildingNames[t]
}

func ParseBuildingType(s string) (BuildingType, error) {
	for i, n := range buildingNames {
		if n == s {
			return BuildingType(i), nil
		}
	}
	return BuildingNone, fmt.Errorf("unknown building type %q", s)
}

// BuildingSize is the footprint class of a building.
type BuildingSize int

const (
	SizeSmall BuildingSize = iota
	SizeLarge
	SizeCastle
)

// StockDef describes one input stock of a building.
type StockDef struct {
	Resource Resource
	Maximum  int
}

// BuildingDef is the static description of a building type.
type BuildingDef struct {
	Size    BuildingSize
	Worker  SerfType
	Stocks  [2]StockDef
	Planks  int
	Stones  int
	Knights int // garrison capacity, military buildings only
	Claim   int // ownership radius once occupied
}

var noStock = StockDef{Resource: ResourceNone}

var Buildings = [BuildingTypeCount]BuildingDef{
	BuildingNone:         {Worker: SerfNone, Stocks: [2]StockDef{noStock, noStock}},
	BuildingFisher:       {Size: SizeSmall, Worker: SerfFisher, Stocks: [2]StockDef{noStock, noStock}, Planks: 2},
	BuildingLumberjack:   {Size: SizeSmall, Worker: SerfLumberjack, Stocks: [2]StockDef{noStock, noStock}, Planks: 2},
	BuildingBoatBuilder:  {Size: SizeSmall, Worker: SerfBoatBuilder, Stocks: [2]StockDef{{Plank, 8}, noStock}, Planks: 3},
	BuildingStonecutter:  {Size: SizeSmall, Worker: SerfStonecutter, Stocks: [2]StockDef{noStock, noStock}, Planks: 2},
	BuildingStoneMine:    {Size: SizeSmall, Worker: SerfMiner, Stocks: [2]StockDef{{GroupFood, 8}, noStock}, Planks: 4},
	BuildingCoalMine:     {Size: SizeSmall, Worker: SerfMiner, Stocks: [2]StockDef{{GroupFood, 8}, noStock}, Planks: 4},
	BuildingIronMine:     {Size: SizeSmall, Worker: SerfMiner, Stocks: [2]StockDef{{GroupFood, 8}, noStock}, Planks: 4},
	BuildingGoldMine:     {Size: SizeSmall, Worker: SerfMiner, Stocks: [2]StockDef{{GroupFood, 8}, noStock}, Planks: 4},
	BuildingForester:     {Size: SizeSmall, Worker: SerfForester, Stocks: [2]StockDef{noStock, noStock}, Planks: 2},
	BuildingStock:        {Size: SizeLarge, Worker: SerfTransporterInventory, Stocks: [2]StockDef{noStock, noStock}, Planks: 4, Stones: 3},
	BuildingHut:          {Size: SizeSmall, Worker: SerfKnight0, Stocks: [2]StockDef{{GoldBar, 2}, noStock}, Planks: 1, Stones: 1, Knights: 3, Claim: 6},
	BuildingFarm:         {Size: SizeLarge, Worker: SerfFarmer, Stocks: [2]StockDef{noStock, noStock}, Planks: 4, Stones: 1},
	BuildingButcher:      {Size: SizeLarge, Worker: SerfButcher, Stocks: [2]StockDef{{Pig, 8}, noStock}, Planks: 2, Stones: 1},
	BuildingPigFarm:      {Size: SizeLarge, Worker: SerfPigFarmer, Stocks: [2]StockDef{{Wheat, 8}, noStock}, Planks: 2, Stones: 1},
	BuildingMill:         {Size: SizeSmall, Worker: SerfMiller, Stocks: [2]StockDef{{Wheat, 8}, noStock}, Planks: 3, Stones: 1},
	BuildingBaker:        {Size: SizeLarge, Worker: SerfBaker, Stocks: [2]StockDef{{Flour, 8}, noStock}, Planks: 2, Stones: 2},
	BuildingSawmill:      {Size: SizeLarge, Worker: SerfSawmiller, Stocks: [2]StockDef{{Lumber, 8}, noStock}, Planks: 3, Stones: 1},
	BuildingSteelSmelter: {Size: SizeLarge, Worker: SerfSmelter, Stocks: [2]StockDef{{Coal, 8}, {IronOre, 8}}, Planks: 3, Stones: 2},
	BuildingToolMaker:    {Size: SizeLarge, Worker: SerfToolmaker, Stocks: [2]StockDef{{Plank, 8}, {Steel, 8}}, Planks: 3, Stones: 1},
	BuildingWeaponSmith:  {Size: SizeLarge, Worker: SerfWeaponSmith, Stocks: [2]StockDef{{Coal, 8}, {Steel, 8}}, Planks: 2, Stones: 1},
	BuildingTower:        {Size: SizeLarge, Worker: SerfKnight0, Stocks: [2]StockDef{{GoldBar, 4}, noStock}, Planks: 2, Stones: 3, Knights: 6, Claim: 8},
	BuildingFortress:     {Size: SizeLarge, Worker: SerfKnight0, Stocks: [2]StockDef{{GoldBar, 8}, noStock}, Planks: 5, Stones: 5, Knights: 12, Claim: 10},
	BuildingGoldSmelter:  {Size: SizeLarge, Worker: SerfSmelter, Stocks: [2]StockDef{{Coal, 8}, {GoldOre, 8}}, Planks: 3, Stones: 1},
	BuildingCastle:       {Size: SizeCastle, Worker: SerfTransporterInventory, Stocks: [2]StockDef{noStock, noStock}, Knights: 0, Claim: 9},
}

func (t BuildingType) Def() BuildingDef { return Buildings[t] }

func (t BuildingType) IsMilitary() bool {
	return t == BuildingHut || t == BuildingTower || t == BuildingFortress || t == BuildingCastle
}

func (t BuildingType) HasInventory() bool { return t == BuildingStock || t == BuildingCastle }

func (t BuildingType) IsMine() bool { return t >= BuildingStoneMine && t <= BuildingGoldMine }

// MineOutput returns the resource a mine of type t produces.
func (t BuildingType) MineOutput() Resource {
	switch t {
	case BuildingStoneMine:
		return Stone
	case BuildingCoalMine:
		return Coal
	case BuildingIronMine:
		return IronOre
	case BuildingGoldMine:
		return GoldOre
	}
	return ResourceNone
}
