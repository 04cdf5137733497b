package world

import (
	"errors"
	"testing"

	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
)

func TestRoadLengthBuckets(t *testing.T) {
	cases := []struct{ length, want int }{
		{1, 0}, {3, 0}, {4, 1}, {5, 1}, {6, 2}, {7, 3}, {9, 3}, {10, 4}, {13, 5}, {18, 6}, {23, 6}, {24, 7}, {200, 7},
	}
	for _, c := range cases {
		if got := GetRoadLengthValue(c.length); got != c.want {
			t.Fatalf("GetRoadLengthValue(%d) = %d, want %d", c.length, got, c.want)
		}
	}
}

func TestDropResourceFillsEightSlots(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 20, 20)
	f, err := g.BuildFlag(0, g.m.Pos(5, 5))
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	for i := 0; i < flagMaxResCount; i++ {
		if !f.DropResource(catalogs.Plank, 0) {
			t.Fatalf("drop %d refused", i)
		}
	}
	if f.DropResource(catalogs.Stone, 0) {
		t.Fatalf("ninth resource accepted")
	}
	if f.HasEmptySlot() || f.ResourceCount() != flagMaxResCount || !f.HasResources() {
		t.Fatalf("full flag: empty=%v count=%d unscheduled=%v", f.HasEmptySlot(), f.ResourceCount(), f.HasResources())
	}
	res, _, ok := f.PickUpResource(3)
	if !ok || res != catalogs.Plank || !f.HasEmptySlot() {
		t.Fatalf("pick up: %v %v", res, ok)
	}
	if _, _, ok := f.PickUpResource(3); ok {
		t.Fatalf("picked up from empty slot")
	}
}

func TestPathBitsFollowAddDelete(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 20, 20)
	f, _ := g.BuildFlag(0, g.m.Pos(5, 5))
	f.AddPath(geom.DirDown, false)
	f.AddPath(geom.DirLeft, true)
	if !f.HasPath(geom.DirDown) || !f.HasPath(geom.DirLeft) || f.HasPath(geom.DirRight) {
		t.Fatalf("paths = %06b", f.Paths())
	}
	if f.IsWaterPath(geom.DirDown) || !f.IsWaterPath(geom.DirLeft) {
		t.Fatalf("water bits wrong")
	}
	if f.LandPaths() != geom.DirDown.Bit() {
		t.Fatalf("land paths = %06b", f.LandPaths())
	}
	f.DropResource(catalogs.Fish, 0)
	f.slots[0].Dir = geom.DirDown
	f.FixScheduled()
	if f.HasResources() {
		t.Fatalf("scheduled resource still reported as unscheduled")
	}
	f.DeletePath(geom.DirDown)
	if f.HasPath(geom.DirDown) {
		t.Fatalf("path not removed")
	}
	if f.slots[0].Dir != geom.DirNone || !f.HasResources() {
		t.Fatalf("resource leaving by a deleted path was not rescheduled")
	}
}

func TestBuildRoadLinksBothEnds(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	a, b := straightRoad(t, g, 0, 5, 5, 6)
	if a.OtherEndFlag(geom.DirRight) != b || b.OtherEndFlag(geom.DirLeft) != a {
		t.Fatalf("road ends not linked")
	}
	if a.LengthCategory(geom.DirRight) != 2 {
		t.Fatalf("length category %d", a.LengthCategory(geom.DirRight))
	}
	if a.MaxTransporters(geom.DirRight) != 3 {
		t.Fatalf("max transporters %d", a.MaxTransporters(geom.DirRight))
	}
	for c := 6; c < 11; c++ {
		if g.m.PathCount(g.m.Pos(c, 5)) != 2 {
			t.Fatalf("tile %d lacks road bits", c)
		}
	}
	checkPathSymmetry(t, g)
}

func TestBuildRoadRejectsCrossing(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	straightRoad(t, g, 0, 5, 5, 6)
	top, err := g.BuildFlag(0, g.m.Pos(8, 2))
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if _, err := g.BuildFlag(0, g.m.Pos(8, 8)); err != nil {
		t.Fatalf("flag: %v", err)
	}
	err = g.BuildRoad(0, top.pos, repeatDir(geom.DirDown, 6))
	if !errors.Is(err, ErrBadRoad) {
		t.Fatalf("crossing road: %v", err)
	}
}

func TestBuildRoadNeedsOwnLand(t *testing.T) {
	g := newTestGame(t, 2)
	own(g, 0, 0, 0, 7, 30)
	own(g, 1, 8, 0, 30, 30)
	a, _ := g.BuildFlag(0, g.m.Pos(5, 5))
	g.placeFlag(0, g.m.Pos(10, 5))
	if err := g.BuildRoad(0, a.pos, repeatDir(geom.DirRight, 5)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("road over enemy land: %v", err)
	}
}

func TestFlagOnRoadSplitsIt(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	a, b := straightRoad(t, g, 0, 5, 5, 6)
	mid, err := g.BuildFlag(0, g.m.Pos(8, 5))
	if err != nil {
		t.Fatalf("split flag: %v", err)
	}
	if a.OtherEndFlag(geom.DirRight) != mid || b.OtherEndFlag(geom.DirLeft) != mid {
		t.Fatalf("old ends not relinked")
	}
	if mid.OtherEndFlag(geom.DirLeft) != a || mid.OtherEndFlag(geom.DirRight) != b {
		t.Fatalf("new flag not linked")
	}
	if a.LengthCategory(geom.DirRight) != 0 || mid.LengthCategory(geom.DirRight) != 0 {
		t.Fatalf("halves should be short roads")
	}
	checkPathSymmetry(t, g)
}

func TestDemolishFlagMergesRoads(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	a, b := straightRoad(t, g, 0, 5, 5, 6)
	mid, _ := g.BuildFlag(0, g.m.Pos(8, 5))
	if !mid.CanDemolish() {
		t.Fatalf("two road flag should merge")
	}
	idx := mid.index
	if err := g.DemolishFlag(0, mid.pos); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	if g.Flag(idx) != nil || g.m.HasFlag(g.m.Pos(8, 5)) {
		t.Fatalf("flag still present")
	}
	if a.OtherEndFlag(geom.DirRight) != b || a.LengthCategory(geom.DirRight) != 2 {
		t.Fatalf("road not merged back")
	}
	if g.m.PathCount(g.m.Pos(8, 5)) != 2 {
		t.Fatalf("road bits lost at merge point")
	}
	checkPathSymmetry(t, g)
}

func TestDemolishRoadClearsBothEnds(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	a, b := straightRoad(t, g, 0, 5, 5, 6)
	if err := g.DemolishRoad(0, g.m.Pos(7, 5)); err != nil {
		t.Fatalf("demolish road: %v", err)
	}
	if a.HasPath(geom.DirRight) || b.HasPath(geom.DirLeft) {
		t.Fatalf("flags still know the road")
	}
	for c := 5; c <= 11; c++ {
		if g.m.Paths(g.m.Pos(c, 5)) != 0 {
			t.Fatalf("road bits left at column %d", c)
		}
	}
}

func TestDemolishedFlagLosesGold(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	f, _ := g.BuildFlag(0, g.m.Pos(5, 5))
	g.addGoldTotal(3)
	f.DropResource(catalogs.GoldOre, 0)
	f.DropResource(catalogs.Plank, 0)
	if err := g.DemolishFlag(0, f.pos); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	if g.GoldTotal() != 2 {
		t.Fatalf("gold total %d, want 2", g.GoldTotal())
	}
}

func TestFlagPlacementRules(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	if _, err := g.BuildFlag(0, g.m.Pos(5, 5)); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if _, err := g.BuildFlag(0, g.m.Pos(6, 5)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("adjacent flag: %v", err)
	}
	if _, err := g.BuildFlag(0, g.m.Pos(40, 40)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("unowned land: %v", err)
	}
}

func TestSearchVisitCap(t *testing.T) {
	g := newTestGame(t, 1)
	n := searchMaxDepth + 10
	var prev, first *Flag
	for i := 1; i <= n; i++ {
		f := newFlag(g, 0, 0)
		f.index = uint32(i)
		g.flags.put(f.index, f)
		if prev != nil {
			prev.LinkWithFlag(f, false, 2, geom.DirLeft, geom.DirRight)
		} else {
			first = f
		}
		prev = f
	}
	s := NewFlagSearch(g)
	s.AddSource(first)
	if s.Execute(func(*Flag, int) bool { return false }, false, false) {
		t.Fatalf("search succeeded without a match")
	}
	if s.Visits() != searchMaxDepth {
		t.Fatalf("visits = %d, want %d", s.Visits(), searchMaxDepth)
	}
}

func TestSearchOriginTags(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 40, 30)
	a, b := straightRoad(t, g, 0, 5, 5, 6)
	c, err := g.BuildFlag(0, g.m.Pos(20, 5))
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := g.BuildRoad(0, b.pos, repeatDir(geom.DirRight, 9)); err != nil {
		t.Fatalf("road: %v", err)
	}
	s := NewFlagSearch(g)
	s.AddSourceTagged(a, 7)
	s.AddSourceTagged(c, 9)
	var order []uint32
	origins := map[uint32]int{}
	s.Execute(func(f *Flag, origin int) bool {
		order = append(order, f.index)
		origins[f.index] = origin
		return false
	}, true, false)
	if len(order) != 3 {
		t.Fatalf("visited %v", order)
	}
	if origins[a.index] != 7 || origins[c.index] != 9 || origins[b.index] != 7 {
		t.Fatalf("origins %v", origins)
	}
}

func TestSearchIDWrapClearsStamps(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	f, _ := g.BuildFlag(0, g.m.Pos(5, 5))
	f.searchNum = 0xfff0
	g.searchID = 0xffff
	if id := g.NextSearchID(); id != 1 {
		t.Fatalf("id after wrap = %d", id)
	}
	if f.SearchNum() != 0 {
		t.Fatalf("stamp not cleared")
	}
}
