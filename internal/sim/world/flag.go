package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
)

const flagMaxResCount = 8

const (
	endPointBuilding    = 1 << 6
	endPointUnscheduled = 1 << 7
	transporterFailed   = 1 << 7
	lengthRequested     = 1 << 7
	lengthCountMask     = 0x0f
	otherEndScheduled   = 1 << 7
	otherEndDirMask     = 0x38
	otherEndSlotMask    = 0x07
	bldFlagInventory    = 1 << 6
	bldFlagAccepts      = 1 << 7
)

// ResourceSlot is one resource waiting at a flag. Dir is the direction it
// will leave by once scheduled; Dest is the destination flag, 0 if unknown.
type ResourceSlot struct {
	Type catalogs.Resource
	Dir  geom.Direction
	Dest uint32
}

func emptySlot() ResourceSlot {
	return ResourceSlot{Type: catalogs.ResourceNone, Dir: geom.DirNone}
}

// Flag is a node of the road network.
type Flag struct {
	g     *Game
	index uint32
	pos   gamemap.Pos

	pathCon     uint8 // bits 0-5 paths, bits 6-7 owner
	endPoint    uint8 // bits 0-5 land path, bit 6 building, bit 7 unscheduled resources
	transporter uint8 // bits 0-5 has transporter, bit 7 last request failed
	length      [geom.DirCount]uint8
	slots       [flagMaxResCount]ResourceSlot
	otherEndDir [geom.DirCount]uint8
	otherEnd    [geom.DirCount]uint32 // flag index, or building index at up-left
	bldFlags    uint8
	bldFlags2   uint8

	searchNum uint16
	searchDir geom.Direction
}

func newFlag(g *Game, pos gamemap.Pos, owner int) *Flag {
	f := &Flag{g: g, pos: pos, searchDir: geom.DirNone}
	for i := range f.slots {
		f.slots[i] = emptySlot()
	}
	f.setOwner(owner)
	return f
}

func (f *Flag) Index() uint32       { return f.index }
func (f *Flag) Pos() gamemap.Pos    { return f.pos }
func (f *Flag) Owner() int          { return int(f.pathCon >> 6) }
func (f *Flag) setOwner(o int)      { f.pathCon = (f.pathCon & 0x3f) | uint8(o&3)<<6 }
func (f *Flag) Paths() uint8        { return f.pathCon & 0x3f }
func (f *Flag) LandPaths() uint8    { return f.endPoint & f.pathCon & 0x3f }
func (f *Flag) Transporters() uint8 { return f.transporter & 0x3f }

// GetRoadLengthValue buckets a road length into the 0..7 category stored in
// the length field.
func GetRoadLengthValue(length int) int { return catalogs.RoadLengthCategory(length) }

func (f *Flag) HasPath(d geom.Direction) bool        { return f.pathCon&d.Bit() != 0 }
func (f *Flag) IsWaterPath(d geom.Direction) bool    { return f.endPoint&d.Bit() == 0 }
func (f *Flag) HasTransporter(d geom.Direction) bool { return f.transporter&d.Bit() != 0 }
func (f *Flag) SerfRequested(d geom.Direction) bool  { return f.length[d]&lengthRequested != 0 }
func (f *Flag) SerfRequestFailed() bool              { return f.transporter&transporterFailed != 0 }
func (f *Flag) ClearSerfRequestFailure()             { f.transporter &^= transporterFailed }
func (f *Flag) FreeTransporterCount(d geom.Direction) int {
	return int(f.length[d] & lengthCountMask)
}

// LengthCategory is the road length bucket of the path in direction d.
func (f *Flag) LengthCategory(d geom.Direction) int { return int(f.length[d]>>4) & 7 }

// MaxTransporters is how many transporters the path in direction d takes.
func (f *Flag) MaxTransporters(d geom.Direction) int {
	return catalogs.MaxTransporters[f.LengthCategory(d)]
}

func (f *Flag) IsScheduled(d geom.Direction) bool { return f.otherEndDir[d]&otherEndScheduled != 0 }
func (f *Flag) ScheduledSlot(d geom.Direction) int {
	return int(f.otherEndDir[d] & otherEndSlotMask)
}

// OtherEndDir is the direction at the far flag that leads back here.
func (f *Flag) OtherEndDir(d geom.Direction) geom.Direction {
	return geom.Direction((f.otherEndDir[d] & otherEndDirMask) >> 3)
}

// OtherEndFlag is the flag at the far end of the path in direction d.
func (f *Flag) OtherEndFlag(d geom.Direction) *Flag {
	if !f.HasPath(d) {
		return nil
	}
	return f.g.flags.get(f.otherEnd[d])
}

func (f *Flag) HasBuilding() bool { return f.endPoint&endPointBuilding != 0 }

// Building is the building attached up-left of the flag, or nil.
func (f *Flag) Building() *Building {
	if !f.HasBuilding() {
		return nil
	}
	return f.g.buildings.get(f.otherEnd[geom.DirUpLeft])
}

func (f *Flag) HasInventory() bool     { return f.bldFlags&bldFlagInventory != 0 }
func (f *Flag) AcceptsSerfs() bool     { return f.bldFlags&bldFlagAccepts != 0 }
func (f *Flag) AcceptsResources() bool { return f.bldFlags2&bldFlagAccepts != 0 }

func (f *Flag) setAcceptsSerfs(v bool) {
	if v {
		f.bldFlags |= bldFlagAccepts
	} else {
		f.bldFlags &^= bldFlagAccepts
	}
}

func (f *Flag) setAcceptsResources(v bool) {
	if v {
		f.bldFlags2 |= bldFlagAccepts
	} else {
		f.bldFlags2 &^= bldFlagAccepts
	}
}

// HasResources reports unscheduled resources waiting here.
func (f *Flag) HasResources() bool { return f.endPoint&endPointUnscheduled != 0 }

// Slot returns a copy of resource slot i.
func (f *Flag) Slot(i int) ResourceSlot { return f.slots[i] }

// ResourceCount is the number of occupied slots.
func (f *Flag) ResourceCount() int {
	n := 0
	for _, s := range f.slots {
		if s.Type != catalogs.ResourceNone {
			n++
		}
	}
	return n
}

func (f *Flag) HasEmptySlot() bool {
	for _, s := range f.slots {
		if s.Type == catalogs.ResourceNone {
			return true
		}
	}
	return false
}

// AddPath marks a road leaving in direction d.
func (f *Flag) AddPath(d geom.Direction, water bool) {
	f.pathCon |= d.Bit()
	if water {
		f.endPoint &^= d.Bit()
	} else {
		f.endPoint |= d.Bit()
	}
	f.transporter &^= d.Bit()
}

// DeletePath removes the road in direction d. Serfs on their way to take
// over the road are told, and resources that were to leave by it are
// rescheduled.
func (f *Flag) DeletePath(d geom.Direction) {
	f.pathCon &^= d.Bit()
	f.endPoint &^= d.Bit()
	f.transporter &^= d.Bit()

	if f.SerfRequested(d) {
		f.cancelSerfRequest(d)
		for _, s := range f.g.GetSerfsRelatedTo(f.index, d) {
			s.PathDeleted(f.index, d)
		}
	}

	f.otherEndDir[d] &= 0x78
	f.otherEnd[d] = 0

	for i := range f.slots {
		if f.slots[i].Type != catalogs.ResourceNone && f.slots[i].Dir == d {
			f.slots[i].Dir = geom.DirNone
			f.endPoint |= endPointUnscheduled
		}
	}
}

// DropResource puts res into the first free slot. It reports false when the
// flag is full.
func (f *Flag) DropResource(res catalogs.Resource, dest uint32) bool {
	if res < catalogs.Fish || res > catalogs.GroupFood {
		f.g.fault("flag.drop_resource", "flag %d: bad resource type %d", f.index, int(res))
	}
	for i := range f.slots {
		if f.slots[i].Type == catalogs.ResourceNone {
			f.slots[i] = ResourceSlot{Type: res, Dir: geom.DirNone, Dest: dest}
			f.endPoint |= endPointUnscheduled
			return true
		}
	}
	return false
}

// PickUpResource empties slot i and returns what was there.
func (f *Flag) PickUpResource(i int) (catalogs.Resource, uint32, bool) {
	if i < 0 || i >= flagMaxResCount {
		f.g.fault("flag.pick_up_resource", "flag %d: bad slot %d", f.index, i)
	}
	s := f.slots[i]
	if s.Type == catalogs.ResourceNone {
		return catalogs.ResourceNone, 0, false
	}
	f.slots[i] = emptySlot()
	f.FixScheduled()
	return s.Type, s.Dest, true
}

// FixScheduled recomputes the unscheduled resources bit.
func (f *Flag) FixScheduled() {
	for _, s := range f.slots {
		if s.Type != catalogs.ResourceNone && s.Dir == geom.DirNone {
			f.endPoint |= endPointUnscheduled
			return
		}
	}
	f.endPoint &^= endPointUnscheduled
}

// PrioritizePickup marks the highest priority resource leaving by d as the
// next one to be fetched.
func (f *Flag) PrioritizePickup(d geom.Direction, p *Player) {
	next := -1
	best := -1
	for i, s := range f.slots {
		if s.Type != catalogs.ResourceNone && s.Dir == d {
			if prio := p.FlagPriority(s.Type); prio > best {
				best = prio
				next = i
			}
		}
	}
	f.otherEndDir[d] &= 0x78
	if next >= 0 {
		f.otherEndDir[d] |= otherEndScheduled | uint8(next)
	}
}

func (f *Flag) completeSerfRequest(d geom.Direction) {
	f.length[d] &^= lengthRequested
	f.length[d]++
}

func (f *Flag) cancelSerfRequest(d geom.Direction) { f.length[d] &^= lengthRequested }

// transporterToServe drops one transporter from the count of path d.
func (f *Flag) transporterToServe(d geom.Direction) {
	if f.length[d]&lengthCountMask > 0 {
		f.length[d]--
	}
}

// linkBuilding attaches b up-left of the flag.
func (f *Flag) linkBuilding(b *Building) {
	f.otherEnd[geom.DirUpLeft] = b.index
	f.endPoint |= endPointBuilding
}

func (f *Flag) unlinkBuilding() {
	f.otherEnd[geom.DirUpLeft] = 0
	f.endPoint &^= endPointBuilding
	f.bldFlags = 0
	f.bldFlags2 = 0
	f.transporter &^= geom.DirUpLeft.Bit()
}

// CanDemolish reports whether the flag can be removed by joining its roads:
// exactly two land roads leading to different flags.
func (f *Flag) CanDemolish() bool {
	connected := 0
	var other uint32
	for _, d := range geom.CycleCW {
		if !f.HasPath(d) {
			continue
		}
		if f.IsWaterPath(d) {
			return false
		}
		connected++
		if other != 0 {
			if f.otherEnd[d] == other {
				return false
			}
		} else {
			other = f.otherEnd[d]
		}
	}
	return connected == 2
}
