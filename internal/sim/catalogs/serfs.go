package catalogs

import "fmt"

// SerfType is a serf profession; knights carry their rank in the type.
type SerfType int

const SerfNone SerfType = -1

const (
	SerfTransporter SerfType = iota
	SerfSailor
	SerfDigger
	SerfBuilder
	SerfTransporterInventory
	SerfLumberjack
	SerfSawmiller
	SerfStonecutter
	SerfForester
	SerfMiner
	SerfSmelter
	SerfFisher
	SerfPigFarmer
	SerfButcher
	SerfFarmer
	SerfMiller
	SerfBaker
	SerfBoatBuilder
	SerfToolmaker
	SerfWeaponSmith
	SerfGeologist
	SerfGeneric
	SerfKnight0
	SerfKnight1
	SerfKnight2
	SerfKnight3
	SerfKnight4
	SerfDead
)

const SerfTypeCount = int(SerfDead) + 1

var serfTypeNames = [SerfTypeCount]string{
	"transporter", "sailor", "digger", "builder", "transporter_inventory", "lumberjack",
	"sawmiller", "stonecutter", "forester", "miner", "smelter", "fisher", "pig_farmer",
	"butcher", "farmer", "miller", "baker", "boat_builder", "toolmaker", "weapon_smith",
	"geologist", "generic", "knight_0", "knight_1", "knight_2", "knight_3", "knight_4", "dead",
}

func (t SerfType) String() string {
	if t < 0 || int(t) >= SerfTypeCount {
		return "none"
	}
	return serfTypeNames[t]
}

func ParseSerfType(s string) (SerfType, error) {
	for i, n := range serfTypeNames {
		if n == s {
			return SerfType(i), nil
		}
	}
	return SerfNone, fmt.Errorf("unknown serf type %q", s)
}

func (t SerfType) IsKnight() bool { return t >= SerfKnight0 && t <= SerfKnight4 }

// KnightRank returns 0..4 for knights and -1 otherwise.
func (t SerfType) KnightRank() int {
	if !t.IsKnight() {
		return -1
	}
	return int(t - SerfKnight0)
}

// Tools lists the resources consumed when a generic serf is specialized.
var Tools = [SerfTypeCount][2]Resource{
	SerfTransporter:          {ResourceNone, ResourceNone},
	SerfSailor:               {Boat, ResourceNone},
	SerfDigger:               {Shovel, ResourceNone},
	SerfBuilder:              {Hammer, ResourceNone},
	SerfTransporterInventory: {ResourceNone, ResourceNone},
	SerfLumberjack:           {Axe, ResourceNone},
	SerfSawmiller:            {Saw, ResourceNone},
	SerfStonecutter:          {Pick, ResourceNone},
	SerfForester:             {ResourceNone, ResourceNone},
	SerfMiner:                {Pick, ResourceNone},
	SerfSmelter:              {ResourceNone, ResourceNone},
	SerfFisher:               {Rod, ResourceNone},
	SerfPigFarmer:            {ResourceNone, ResourceNone},
	SerfButcher:              {Cleaver, ResourceNone},
	SerfFarmer:               {Scythe, ResourceNone},
	SerfMiller:               {ResourceNone, ResourceNone},
	SerfBaker:                {ResourceNone, ResourceNone},
	SerfBoatBuilder:          {Hammer, ResourceNone},
	SerfToolmaker:            {Hammer, Saw},
	SerfWeaponSmith:          {Hammer, Pinchers},
	SerfGeologist:            {Hammer, ResourceNone},
	SerfGeneric:              {ResourceNone, ResourceNone},
	SerfKnight0:              {Sword, Shield},
	SerfKnight1:              {ResourceNone, ResourceNone},
	SerfKnight2:              {ResourceNone, ResourceNone},
	SerfKnight3:              {ResourceNone, ResourceNone},
	SerfKnight4:              {ResourceNone, ResourceNone},
	SerfDead:                 {ResourceNone, ResourceNone},
}
