package world

import (
	"errors"
	"testing"

	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

func TestCastleStocksInventory(t *testing.T) {
	g := newTestGame(t, 1)
	pos := g.m.Pos(16, 16)
	b, err := g.BuildCastle(0, pos)
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	inv := g.Inventory(b.InventoryIndex())
	if inv == nil {
		t.Fatalf("castle has no inventory")
	}
	if inv.Count(catalogs.Plank) != 30 || inv.Count(catalogs.GoldBar) != 4 {
		t.Fatalf("stock plank=%d gold=%d", inv.Count(catalogs.Plank), inv.Count(catalogs.GoldBar))
	}
	if g.GoldTotal() != 4 {
		t.Fatalf("gold total %d", g.GoldTotal())
	}
	setup := g.cfg.Players[0]
	if n := inv.IdleSerfCount(catalogs.SerfGeneric); n != setup.InitialSerfs {
		t.Fatalf("idle generic serfs %d, want %d", n, setup.InitialSerfs)
	}
	if b.knightCount() != setup.InitialKnights {
		t.Fatalf("knights %d", b.knightCount())
	}
	f := g.FlagAt(g.m.Move(pos, geom.DirDownRight))
	if f == nil || !f.HasBuilding() || f.Building() != b || !f.HasInventory() {
		t.Fatalf("castle flag not linked")
	}
	if g.m.Owner(g.m.Pos(22, 16)) != 0 {
		t.Fatalf("castle did not claim land")
	}
	if _, err := g.BuildCastle(0, g.m.Pos(30, 30)); !errors.Is(err, ErrCannotBuild) {
		t.Fatalf("second castle: %v", err)
	}
}

func TestBuildBuildingReusesFlag(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	f, err := g.BuildFlag(0, g.m.Pos(10, 10))
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	b, err := g.BuildBuilding(0, catalogs.BuildingLumberjack, g.m.Pos(9, 9))
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	if b.FlagIndex() != f.index || f.Building() != b {
		t.Fatalf("building not on existing flag")
	}
	if !g.m.HasPath(b.pos, geom.DirDownRight) || !g.m.HasPath(f.pos, geom.DirUpLeft) || !f.HasBuilding() {
		t.Fatalf("building link missing")
	}
	if _, err := g.BuildBuilding(0, catalogs.BuildingSawmill, g.m.Pos(9, 9)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("double building: %v", err)
	}
	if _, err := g.BuildBuilding(0, catalogs.BuildingCastle, g.m.Pos(20, 20)); !errors.Is(err, ErrCannotBuild) {
		t.Fatalf("castle through BuildBuilding: %v", err)
	}
	if err := g.DemolishFlag(0, f.pos); !errors.Is(err, ErrCannotDemolish) {
		t.Fatalf("flag under building: %v", err)
	}
}

func TestDemolishBuildingBurns(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	b, err := g.BuildBuilding(0, catalogs.BuildingLumberjack, g.m.Pos(9, 9))
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	f := b.flagOf()
	if err := g.DemolishBuilding(0, b.pos); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	if !b.IsBurning() || f.HasBuilding() || g.m.HasPath(f.pos, geom.DirUpLeft) {
		t.Fatalf("burning building still linked")
	}
	idx := b.index
	for i := 0; i < burnTicks; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if g.Building(idx) != nil || g.m.HasBuilding(g.m.Pos(9, 9)) {
		t.Fatalf("burnt building not removed")
	}
}

func TestSerfCounterFollowsTicks(t *testing.T) {
	g := newTestGame(t, 1)
	s := g.newSerf(0, catalogs.SerfGeneric, g.m.Pos(3, 3))
	s.counter = 100
	g.tick += 14
	s.Update()
	if s.Counter() != 86 || s.LastTick() != g.tick {
		t.Fatalf("counter %d tick %d", s.Counter(), s.LastTick())
	}
	g.tick += 6
	s.Update()
	if s.Counter() != 80 {
		t.Fatalf("counter %d", s.Counter())
	}
}

func TestSetStateKeepsPayloadWithinGroup(t *testing.T) {
	g := newTestGame(t, 1)
	s := g.newSerf(0, catalogs.SerfTransporter, g.m.Pos(3, 3))
	s.setState(model.StateWalking)
	s.walking().Dest = 42
	s.counter = 9
	s.setState(model.StateTransporting)
	if s.payload.Group() != model.GroupTransporting {
		t.Fatalf("payload group %d", s.payload.Group())
	}
	s.transporting().Dest = 7
	s.setState(model.StateDelivering)
	if s.transporting().Dest != 7 {
		t.Fatalf("payload lost within group")
	}
	if s.counter != 0 || s.animation != 0 {
		t.Fatalf("counter/animation not reset")
	}
}

func TestHighRankKnightUsuallyWins(t *testing.T) {
	g := newTestGame(t, 2)
	a := g.newSerf(0, catalogs.SerfKnight0, g.m.Pos(1, 1))
	d := g.newSerf(1, catalogs.SerfKnight4, g.m.Pos(2, 1))
	defenderWins := 0
	for i := 0; i < 1000; i++ {
		if !a.SetFightOutcome(d) {
			defenderWins++
		}
	}
	if defenderWins <= 850 {
		t.Fatalf("rank 4 defender won %d of 1000", defenderWins)
	}
}

func TestAttackNeedsEnemyTarget(t *testing.T) {
	g := newTestGame(t, 2)
	b, err := g.BuildCastle(0, g.m.Pos(16, 16))
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	if _, err := g.Attack(0, b.pos, 1); !errors.Is(err, ErrBadTarget) {
		t.Fatalf("attacking own castle: %v", err)
	}
	if _, err := g.Attack(0, g.m.Pos(40, 40), 1); !errors.Is(err, ErrNoSuchObject) {
		t.Fatalf("attacking nothing: %v", err)
	}
}

func TestCommandsRejectBadPlayer(t *testing.T) {
	g := newTestGame(t, 1)
	if _, err := g.BuildFlag(3, g.m.Pos(1, 1)); !errors.Is(err, ErrBadPlayer) {
		t.Fatalf("bad player: %v", err)
	}
}

func TestToolMakerDrawsByPriority(t *testing.T) {
	g := newTestGame(t, 1)
	seen := map[catalogs.Resource]int{}
	for i := 0; i < 400; i++ {
		seen[g.drawTool(0)]++
	}
	if seen[catalogs.Shovel] == 0 || seen[catalogs.Pinchers] == 0 || len(seen) < 8 {
		t.Fatalf("default priorities drew only %v", seen)
	}

	p := g.Player(0)
	for tool := catalogs.Shovel; tool <= catalogs.Pinchers; tool++ {
		p.SetToolPriority(tool, 0)
	}
	p.SetToolPriority(catalogs.Saw, 5)
	p.SetToolPriority(catalogs.Hammer, -3)
	for i := 0; i < 50; i++ {
		if got := g.drawTool(0); got != catalogs.Saw {
			t.Fatalf("draw %d = %s, want saw", i, got)
		}
	}
}

func TestWeaponSmithAlternates(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	b, err := g.BuildBuilding(0, catalogs.BuildingWeaponSmith, g.m.Pos(9, 9))
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	before := b.progress
	want := []catalogs.Resource{catalogs.Sword, catalogs.Shield, catalogs.Sword, catalogs.Shield}
	for i, w := range want {
		if got := b.product(); got != w {
			t.Fatalf("product %d = %s, want %s", i, got, w)
		}
	}
	if b.progress != before {
		t.Fatalf("weapon production touched construction progress: %d -> %d", before, b.progress)
	}
}

func TestSupplySkipsFullStock(t *testing.T) {
	g := newTestGame(t, 1)
	castle, err := g.BuildCastle(0, g.m.Pos(16, 16))
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	own(g, 0, 0, 0, 40, 40)
	site, err := g.BuildBuilding(0, catalogs.BuildingLumberjack, g.m.Pos(21, 16))
	if err != nil {
		t.Fatalf("site: %v", err)
	}
	if err := g.BuildRoad(0, g.m.Pos(17, 17), repeatDir(geom.DirRight, 5)); err != nil {
		t.Fatalf("road: %v", err)
	}
	inv := g.Inventory(castle.InventoryIndex())
	planks := inv.Count(catalogs.Plank)
	i := site.stockIndexFor(catalogs.Plank)
	if i < 0 {
		t.Fatalf("site takes no planks")
	}
	st := &site.stock[i]
	st.available, st.requested, st.prio = st.maximum, 0, 0xff

	g.supplyFromInventories(0, catalogs.Plank)
	if inv.outQueue[0].Res != catalogs.ResourceNone || inv.Count(catalogs.Plank) != planks || st.requested != 0 {
		t.Fatalf("full site was supplied: queue=%v requested=%d", inv.outQueue, st.requested)
	}

	st.available, st.prio = 0, 0xff
	g.supplyFromInventories(0, catalogs.Plank)
	if q := inv.outQueue[0]; q.Res != catalogs.Plank || q.Dest != site.FlagIndex() || st.requested != 1 {
		t.Fatalf("queue=%v requested=%d", inv.outQueue, st.requested)
	}
	if inv.Count(catalogs.Plank) != planks-1 {
		t.Fatalf("planks %d, want %d", inv.Count(catalogs.Plank), planks-1)
	}
}

func TestGarrisonedKnightTrains(t *testing.T) {
	g := newTestGame(t, 1)
	k := placeSerf(g, catalogs.SerfKnight0, 5, 5)
	k.setState(model.StateDefendingCastle)
	for i := 0; i < 2000 && k.typ == catalogs.SerfKnight0; i++ {
		g.tick += trainingTicks
		k.Update()
	}
	if k.typ != catalogs.SerfKnight1 {
		t.Fatalf("knight is %s after training, want one rank up", k.typ)
	}
	if k.state != model.StateDefendingCastle {
		t.Fatalf("training changed state to %s", k.state)
	}

	top := placeSerf(g, catalogs.SerfKnight4, 6, 6)
	top.setState(model.StateDefendingHut)
	for i := 0; i < 100; i++ {
		g.tick += trainingTicks
		top.Update()
	}
	if top.typ != catalogs.SerfKnight4 {
		t.Fatalf("top rank knight became %s", top.typ)
	}
}

func TestFullHutExchangesWeakestKnight(t *testing.T) {
	g := newTestGame(t, 1)
	castle, err := g.BuildCastle(0, g.m.Pos(16, 16))
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	own(g, 0, 0, 0, 40, 40)
	hut, err := g.BuildBuilding(0, catalogs.BuildingHut, g.m.Pos(21, 16))
	if err != nil {
		t.Fatalf("hut: %v", err)
	}
	if err := g.BuildRoad(0, g.m.Pos(17, 17), repeatDir(geom.DirRight, 5)); err != nil {
		t.Fatalf("road: %v", err)
	}
	hut.finishConstruction()
	var garrison []*Serf
	for _, typ := range []catalogs.SerfType{catalogs.SerfKnight1, catalogs.SerfKnight0, catalogs.SerfKnight2} {
		k := g.newSerf(0, typ, hut.pos)
		hut.addKnight(k)
		garrison = append(garrison, k)
	}
	strong := g.Inventory(castle.InventoryIndex()).spawnSerf(catalogs.SerfKnight3)

	// Nothing happens between exchange rounds.
	g.tick = knightExchangeEvery + 2
	hut.tick = g.tick - 2
	hut.update()
	if hut.serfRequested || strong.state != model.StateIdleInStock {
		t.Fatalf("exchange outside its round")
	}

	g.tick = 2 * knightExchangeEvery
	hut.tick = g.tick - 2
	hut.update()
	if !hut.serfRequested {
		t.Fatalf("full hut did not ask for a stronger knight")
	}
	if strong.state != model.StateReadyToLeaveInventory {
		t.Fatalf("strong knight state %s", strong.state)
	}
	if r := strong.payload.(*model.ReadyToLeaveInventory); r.Dest != hut.FlagIndex() || r.Mode != model.WalkEnterBuilding {
		t.Fatalf("strong knight sent to %d mode %d", r.Dest, r.Mode)
	}

	hut.requestedSerfReached(strong)
	hut.addKnight(strong)
	hut.tick = g.tick
	hut.update()
	if hut.knightCount() != catalogs.BuildingHut.Def().Knights {
		t.Fatalf("garrison %d after exchange", hut.knightCount())
	}
	weak := garrison[1]
	for _, k := range hut.knights() {
		if k == weak {
			t.Fatalf("weakest knight still garrisoned")
		}
	}
	if weak.state != model.StateReadyToLeave || weak.leaving().NextState != model.StateWalking {
		t.Fatalf("weakest knight state %s", weak.state)
	}

	// A garrison no inventory can improve on asks for nobody.
	for _, k := range hut.knights() {
		k.setType(catalogs.SerfKnight4)
	}
	g.tick = 3 * knightExchangeEvery
	hut.tick = g.tick - 2
	hut.update()
	if hut.serfRequested {
		t.Fatalf("top rank garrison asked for an exchange")
	}
}
