package world

import "serfcraft.dev/internal/sim/geom"

// searchMaxDepth bounds the number of flags one search may visit.
const searchMaxDepth = 0x10000

// SearchFunc is called for every flag a search reaches, with the tag of the
// source it was reached from. Returning true ends the search successfully.
type SearchFunc func(f *Flag, origin int) bool

type searchEntry struct {
	flag   *Flag
	origin int
}

// FlagSearch is a breadth first walk of the road network. Visited flags are
// stamped with the search id so no per search visited set is needed.
type FlagSearch struct {
	g      *Game
	id     uint16
	queue  []searchEntry
	head   int
	visits int
}

func NewFlagSearch(g *Game) *FlagSearch {
	return &FlagSearch{g: g, id: g.NextSearchID()}
}

func (s *FlagSearch) ID() uint16 { return s.id }

// Visits is how many flags Execute handed to the callback.
func (s *FlagSearch) Visits() int { return s.visits }

func (s *FlagSearch) AddSource(f *Flag) { s.AddSourceTagged(f, 0) }

// AddSourceTagged seeds the search; every flag reached from f reports origin.
func (s *FlagSearch) AddSourceTagged(f *Flag, origin int) {
	f.searchNum = s.id
	s.queue = append(s.queue, searchEntry{flag: f, origin: origin})
}

// Execute runs the search. landOnly skips water roads, transporterOnly
// skips roads without an assigned transporter. Neighbours are expanded in
// counter-clockwise order and inherit the search direction and origin of
// the flag they were reached from.
func (s *FlagSearch) Execute(cb SearchFunc, landOnly, transporterOnly bool) bool {
	for i := 0; i < searchMaxDepth && s.head < len(s.queue); i++ {
		e := s.queue[s.head]
		s.head++
		s.visits++
		if cb(e.flag, e.origin) {
			s.queue = nil
			s.head = 0
			return true
		}
		f := e.flag
		for _, d := range geom.CycleCCW {
			if !f.HasPath(d) {
				continue
			}
			if landOnly && f.IsWaterPath(d) {
				continue
			}
			if transporterOnly && !f.HasTransporter(d) {
				continue
			}
			other := f.g.flags.get(f.otherEnd[d])
			if other == nil || other.searchNum == s.id {
				continue
			}
			other.searchNum = s.id
			other.searchDir = f.searchDir
			s.queue = append(s.queue, searchEntry{flag: other, origin: e.origin})
		}
	}
	return false
}

// SearchSingle runs a search from one flag.
func SearchSingle(src *Flag, cb SearchFunc, landOnly, transporterOnly bool) bool {
	s := NewFlagSearch(src.g)
	s.AddSource(src)
	return s.Execute(cb, landOnly, transporterOnly)
}

// SearchNum and SearchDir expose the transient search stamp.
func (f *Flag) SearchNum() uint16             { return f.searchNum }
func (f *Flag) SearchDir() geom.Direction     { return f.searchDir }
func (f *Flag) SetSearchDir(d geom.Direction) { f.searchDir = d }

// FindNearestInventoryForResource returns the closest flag, following only
// served roads, whose building accepts resources.
func (f *Flag) FindNearestInventoryForResource() *Flag {
	var dest *Flag
	SearchSingle(f, func(o *Flag, _ int) bool {
		if o.AcceptsResources() {
			dest = o
			return true
		}
		return false
	}, false, true)
	return dest
}

// FindNearestInventoryForSerf returns the closest flag over land roads whose
// building accepts serfs.
func (f *Flag) FindNearestInventoryForSerf() *Flag {
	var dest *Flag
	SearchSingle(f, func(o *Flag, _ int) bool {
		if o.AcceptsSerfs() {
			dest = o
			return true
		}
		return false
	}, true, false)
	return dest
}
