package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	dc "serfcraft.dev/internal/sim/world/io/digestcodec"
)

// StateDigest hashes everything that influences future steps. Two games
// with equal digests step identically.
func (g *Game) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	g.digestHeader(h, &tmp)
	g.digestMap(h, &tmp)
	g.digestPlayers(h, &tmp)
	g.digestFlags(h, &tmp)
	g.digestSerfs(h, &tmp)
	g.digestBuildings(h, &tmp)
	g.digestInventories(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (g *Game) digestHeader(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(g.tick))
	w := g.rnd.Words()
	dc.U64(h, tmp, uint64(w[0])|uint64(w[1])<<16|uint64(w[2])<<32)
	dc.U64(h, tmp, uint64(g.searchID))
	dc.I64(h, tmp, int64(g.goldTotal))
	dc.U64(h, tmp, uint64(g.lastInventoryUpdate))
	dc.U64(h, tmp, uint64(g.lastRequestClear))
	dc.I64(h, tmp, int64(g.mapCursor))
}

func (g *Game) digestMap(h dc.Writer, tmp *[8]byte) {
	m := g.m
	dc.U64(h, tmp, uint64(m.Size()))
	for i := 0; i < m.Size(); i++ {
		t := m.Tile(m.PosAt(i))
		dc.U64(h, tmp, uint64(t.Paths)|uint64(t.Height)<<8|uint64(t.TypeUp)<<16|uint64(t.TypeDown)<<24|
			uint64(t.Object)<<32|uint64(t.Mineral)<<40|uint64(t.Amount)<<48|uint64(dc.BoolByte(t.IdleSerf))<<56)
		dc.I64(h, tmp, int64(t.Owner))
		dc.U64(h, tmp, uint64(t.ObjIndex)|uint64(t.Serf)<<32)
	}
}

func (g *Game) digestPlayers(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(len(g.players)))
	for _, p := range g.players {
		dc.Ints(h, tmp, p.flagPrio[:])
		dc.Ints(h, tmp, p.inventoryPrio[:])
		dc.Ints(h, tmp, p.toolPrio[:])
		dc.I64(h, tmp, int64(p.baseMorale))
		dc.I64(h, tmp, int64(p.knightMorale))
		dc.I64(h, tmp, int64(p.militaryScore))
		dc.U64(h, tmp, uint64(p.castle))
		dc.U64(h, tmp, uint64(p.lastSpawn))
		dc.WriteSortedNonZeroIntMap(h, tmp, p.setup.InitialStock)
	}
}

func (g *Game) digestFlags(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(g.flags.count()))
	g.flags.each(func(i uint32, f *Flag) {
		dc.U64(h, tmp, uint64(i))
		dc.U64(h, tmp, uint64(f.pos))
		dc.U64(h, tmp, uint64(f.pathCon)|uint64(f.endPoint)<<8|uint64(f.transporter)<<16|
			uint64(f.bldFlags)<<24|uint64(f.bldFlags2)<<32)
		for d := range f.length {
			dc.U64(h, tmp, uint64(f.length[d])|uint64(f.otherEndDir[d])<<8|uint64(f.otherEnd[d])<<16)
		}
		for _, sl := range f.slots {
			dc.I64(h, tmp, int64(sl.Type))
			dc.I64(h, tmp, int64(sl.Dir))
			dc.U64(h, tmp, uint64(sl.Dest))
		}
		dc.U64(h, tmp, uint64(f.searchNum))
		dc.I64(h, tmp, int64(f.searchDir))
	})
}

func (g *Game) digestSerfs(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(g.serfs.count()))
	g.serfs.each(func(i uint32, s *Serf) {
		dc.U64(h, tmp, uint64(i))
		dc.I64(h, tmp, int64(s.player))
		dc.I64(h, tmp, int64(s.typ))
		dc.I64(h, tmp, int64(s.state))
		dc.U64(h, tmp, uint64(s.pos))
		dc.I64(h, tmp, int64(s.counter))
		dc.I64(h, tmp, int64(s.animation))
		dc.U64(h, tmp, uint64(s.tick))
		if s.payload == nil {
			dc.Bytes(h, tmp, nil)
			return
		}
		raw, _ := json.Marshal(s.payload)
		dc.Bytes(h, tmp, raw)
	})
}

func (g *Game) digestBuildings(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(g.buildings.count()))
	g.buildings.each(func(i uint32, b *Building) {
		dc.U64(h, tmp, uint64(i))
		dc.I64(h, tmp, int64(b.typ))
		dc.I64(h, tmp, int64(b.owner))
		dc.U64(h, tmp, uint64(b.pos))
		dc.U64(h, tmp, uint64(b.flag))
		dc.Bools(h, tmp, b.done, b.leveled, b.active, b.burning, b.serfRequested, b.serfRequestFailed, b.shieldNext)
		dc.I64(h, tmp, int64(b.burnCounter))
		dc.I64(h, tmp, int64(b.progress))
		dc.U64(h, tmp, uint64(b.serf))
		dc.U64(h, tmp, uint64(b.firstKnight))
		dc.U64(h, tmp, uint64(b.inventory))
		for _, st := range b.stock {
			dc.Ints(h, tmp, []int{int(st.typ), st.prio, st.available, st.requested, st.maximum})
		}
		dc.U64(h, tmp, uint64(b.tick))
	})
}

func (g *Game) digestInventories(h dc.Writer, tmp *[8]byte) {
	dc.U64(h, tmp, uint64(g.inventories.count()))
	g.inventories.each(func(i uint32, inv *Inventory) {
		dc.U64(h, tmp, uint64(i))
		dc.I64(h, tmp, int64(inv.owner))
		dc.U64(h, tmp, uint64(inv.flag))
		dc.U64(h, tmp, uint64(inv.building))
		dc.Ints(h, tmp, inv.resources[:])
		for _, q := range inv.outQueue {
			dc.I64(h, tmp, int64(q.Res))
			dc.U64(h, tmp, uint64(q.Dest))
		}
		dc.I64(h, tmp, int64(inv.resMode))
		dc.I64(h, tmp, int64(inv.serfMode))
	})
}
