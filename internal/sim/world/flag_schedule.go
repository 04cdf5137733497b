package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
)

const (
	// unknownDestAcceptPrio ends a destination search early.
	unknownDestAcceptPrio = 204
	// unknownDestMinPrio is the lowest stock priority that attracts a resource.
	unknownDestMinPrio = 16
)

// Update schedules waiting resources and decides which roads need another
// transporter. Called once per tick for every flag in index order.
func (f *Flag) Update() {
	// resWaiting[k] has bit d set when more than k resources wait for d.
	var resWaiting [4]uint8
	for _, s := range f.slots {
		if s.Type == catalogs.ResourceNone || s.Dir == geom.DirNone {
			continue
		}
		for k := 0; k < 4; k++ {
			if resWaiting[k]&s.Dir.Bit() == 0 {
				resWaiting[k] |= s.Dir.Bit()
				break
			}
		}
	}

	// waitingCount is only taken while something is left to schedule.
	waitingCount := 0
	if f.HasResources() {
		f.endPoint &^= endPointUnscheduled
		for i := range f.slots {
			if f.slots[i].Type == catalogs.ResourceNone {
				continue
			}
			waitingCount++
			if f.slots[i].Dir != geom.DirNone {
				continue
			}
			if f.slots[i].Dest != 0 {
				f.scheduleSlotToKnownDest(i, resWaiting)
			} else {
				f.scheduleSlotToUnknownDest(i)
			}
		}
	}

	for _, j := range geom.CycleCCW {
		if !f.HasPath(j) {
			continue
		}
		switch {
		case f.SerfRequested(j):
			if resWaiting[2]&j.Bit() != 0 {
				if waitingCount >= 7 {
					f.transporter &= j.Bit()
				}
			} else if f.FreeTransporterCount(j) != 0 {
				f.transporter |= j.Bit()
			}
		case f.FreeTransporterCount(j) == 0 || resWaiting[2]&j.Bit() != 0:
			if f.FreeTransporterCount(j) < f.MaxTransporters(j) && !f.SerfRequestFailed() {
				if !f.CallTransporter(j, f.IsWaterPath(j)) {
					f.transporter |= transporterFailed
				}
			}
			if f.FreeTransporterCount(j) != 0 {
				f.transporter |= j.Bit()
			}
		case f.FreeTransporterCount(j) != 0:
			f.transporter |= j.Bit()
		}
	}
}

// scheduleSlotToUnknownDest finds a destination for a resource nobody asked
// for yet: a building that wants it, else the nearest inventory.
func (f *Flag) scheduleSlotToUnknownDest(slot int) {
	res := f.slots[slot].Type
	routable := res == catalogs.GroupFood || (res.Valid() && catalogs.Routable[res])
	if routable {
		want := res
		if want.IsFood() {
			want = catalogs.GroupFood
		}
		var best *Flag
		bestPrio := 0
		s := NewFlagSearch(f.g)
		s.AddSource(f)
		s.Execute(func(o *Flag, _ int) bool {
			b := o.Building()
			if b == nil {
				return false
			}
			if prio := b.GetMaxPriorityForResource(want, unknownDestMinPrio); prio > bestPrio {
				bestPrio = prio
				best = o
			}
			return bestPrio > unknownDestAcceptPrio
		}, false, true)
		if best != nil {
			if !best.Building().AddRequestedResource(want, true) {
				f.g.fault("flag.schedule_unknown", "flag %d: building %d refused %v", f.index, best.Building().index, want)
			}
			f.slots[slot].Dest = best.index
			f.endPoint |= endPointUnscheduled
			return
		}
	}

	inv := f.FindNearestInventoryForResource()
	if inv != nil && inv != f {
		f.slots[slot].Dest = inv.index
		f.endPoint |= endPointUnscheduled
		return
	}

	// No inventory reachable, or the resource already sits at one: move it
	// one hop along any served road and try again from there.
	if f.Transporters() == 0 {
		f.endPoint |= endPointUnscheduled
		return
	}
	dir := geom.DirNone
	for _, d := range geom.CycleCCW {
		if f.HasTransporter(d) {
			dir = d
		}
	}
	if !dir.Valid() {
		f.g.fault("flag.schedule_unknown", "flag %d: no served road", f.index)
	}
	if !f.IsScheduled(dir) {
		f.otherEndDir[dir] = otherEndScheduled | (f.otherEndDir[dir] & 0x78) | uint8(slot)
	}
	f.slots[slot].Dir = dir
}

// scheduleSlotToKnownDest picks the road a resource with a known
// destination leaves by. Neighbours reached through lightly loaded roads are
// searched first.
func (f *Flag) scheduleSlotToKnownDest(slot int, resWaiting [4]uint8) {
	s := NewFlagSearch(f.g)
	f.searchNum = s.ID()
	f.searchDir = geom.DirNone
	tr := f.Transporters()
	sources := 0

	addTier := func(mask uint8) {
		for _, k := range geom.CycleCCW {
			if mask&k.Bit() == 0 {
				continue
			}
			other := f.OtherEndFlag(k)
			if other == nil || other.searchNum == s.ID() {
				continue
			}
			other.searchDir = k
			s.AddSource(other)
			sources++
		}
	}

	// Idle transporters first, then progressively busier roads.
	addTier((resWaiting[0] ^ 0x3f) & tr)
	if tr != 0 {
		for j := 0; j < 3; j++ {
			addTier((resWaiting[j] ^ resWaiting[j+1]) & tr)
		}
		addTier(resWaiting[3] & tr)
	}

	if sources > 0 {
		dest := f.slots[slot].Dest
		found := s.Execute(func(o *Flag, _ int) bool {
			if o.index != dest {
				return false
			}
			d := o.searchDir
			if !d.Valid() {
				return true
			}
			if !f.IsScheduled(d) {
				f.otherEndDir[d] = otherEndScheduled | (f.otherEndDir[d] & 0x78) | uint8(slot)
			} else {
				p := f.g.Player(f.Owner())
				old := f.slots[f.ScheduledSlot(d)].Type
				if p.FlagPriority(f.slots[slot].Type) > p.FlagPriority(old) {
					f.otherEndDir[d] = (f.otherEndDir[d] & 0xf8) | uint8(slot)
				}
			}
			f.slots[slot].Dir = d
			return true
		}, false, true)
		if found {
			return
		}
	}

	f.g.CancelTransportedResource(f.slots[slot].Type, f.slots[slot].Dest)
	f.slots[slot].Dest = 0
	f.endPoint |= endPointUnscheduled
}

// CallTransporter asks the nearest inventory reachable from either end of
// road d for a transporter (or sailor on water). The serf is sent to
// whichever end the inventory was reached from.
func (f *Flag) CallTransporter(d geom.Direction, water bool) bool {
	src2 := f.OtherEndFlag(d)
	if src2 == nil {
		f.g.fault("flag.call_transporter", "flag %d: no road %v", f.index, d)
	}
	dir2 := f.OtherEndDir(d)

	f.searchDir = geom.DirRight
	src2.searchDir = geom.DirDownRight

	var inv *Inventory
	s := NewFlagSearch(f.g)
	s.AddSource(f)
	s.AddSource(src2)
	s.Execute(func(o *Flag, _ int) bool {
		if !o.HasInventory() {
			return false
		}
		b := o.Building()
		if b == nil {
			return false
		}
		cand := f.g.inventories.get(b.inventory)
		if cand != nil && cand.canSupplyTransporter(water) {
			inv = cand
			return true
		}
		return false
	}, true, false)
	if inv == nil {
		return false
	}

	serf := inv.callTransporter(water)
	if serf == nil {
		return false
	}
	destFlag := f.g.flags.get(inv.flag)

	f.length[d] |= lengthRequested
	src2.length[dir2] |= lengthRequested

	src, dir1 := f, d
	if destFlag != nil && destFlag.searchDir == src2.searchDir {
		src, dir1 = src2, dir2
	}
	serf.GoOutFromInventory(inv.index, src.index, int(dir1))
	return true
}
