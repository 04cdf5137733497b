// Package catalogs holds the static type tables of the economy: resources,
// serf professions and building types.
package catalogs

import "fmt"

// Resource is a transportable good.
type Resource int

const ResourceNone Resource = -1

const (
	Fish Resource = iota
	Pig
	Meat
	Wheat
	Flour
	Bread
	Lumber
	Plank
	Boat
	Stone
	IronOre
	Steel
	Coal
	GoldOre
	GoldBar
	Shovel
	Hammer
	Rod
	Cleaver
	Scythe
	Axe
	Saw
	Pick
	Pinchers
	Sword
	Shield

	// GroupFood stands for any of Fish, Meat and Bread in requests.
	GroupFood
)

// ResourceCount is the number of concrete resource types.
const ResourceCount = int(Shield) + 1

var resourceNames = [...]string{
	"fish", "pig", "meat", "wheat", "flour", "bread", "lumber", "plank", "boat",
	"stone", "iron_ore", "steel", "coal", "gold_ore", "gold_bar", "shovel", "hammer",
	"rod", "cleaver", "scythe", "axe", "saw", "pick", "pinchers", "sword", "shield",
	"group_food",
}

func (r Resource) String() string {
	if r < 0 || int(r) >= len(resourceNames) {
		return "none"
	}
	return resourceNames[r]
}

// Valid reports whether r is a concrete resource type.
func (r Resource) Valid() bool { return r >= Fish && r <= Shield }

// ParseResource is the inverse of String.
func ParseResource(s string) (Resource, error) {
	for i, n := range resourceNames {
		if n == s {
			return Resource(i), nil
		}
	}
	if s == "none" {
		return ResourceNone, nil
	}
	return ResourceNone, fmt.Errorf("unknown resource %q", s)
}

// IsFood reports whether r satisfies a GroupFood request.
func (r Resource) IsFood() bool { return r == Fish || r == Meat || r == Bread }

// IsGold reports whether losing r affects the gold total.
func (r Resource) IsGold() bool { return r == GoldOre || r == GoldBar }

// FoodTypes lists the resources accepted for GroupFood, in preference order.
var FoodTypes = [...]Resource{Bread, Fish, Meat}

// Routable marks resources that are routed directly to a requesting building.
// The others (boats, tools, weapons) always travel to an inventory first.
var Routable = [ResourceCount]bool{
	Fish: true, Pig: true, Meat: true, Wheat: true, Flour: true, Bread: true,
	Lumber: true, Plank: true, Boat: false, Stone: true, IronOre: true, Steel: true,
	Coal: true, GoldOre: true, GoldBar: true,
}

// DefaultFlagPriority is the initial per-player transport priority of each resource.
var DefaultFlagPriority = [ResourceCount]int{
	Fish: 9, Pig: 3, Meat: 8, Wheat: 2, Flour: 4, Bread: 10, Lumber: 12, Plank: 19,
	Boat: 1, Stone: 18, IronOre: 6, Steel: 14, Coal: 7, GoldOre: 13, GoldBar: 26,
	Shovel: 5, Hammer: 16, Rod: 11, Cleaver: 15, Scythe: 17, Axe: 20, Saw: 21,
	Pick: 22, Pinchers: 23, Sword: 24, Shield: 25,
}
