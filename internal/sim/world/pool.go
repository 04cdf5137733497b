package world

// pool is an index addressed arena. Index 0 is never handed out so it can
// stand for "no object"; freed indices are reused lowest first.
type pool[T any] struct {
	items []*T
	live  int
}

func newPool[T any]() pool[T] {
	return pool[T]{items: make([]*T, 1, 64)}
}

func (p *pool[T]) get(i uint32) *T {
	if i == 0 || int(i) >= len(p.items) {
		return nil
	}
	return p.items[i]
}

// alloc stores v at the lowest free index and returns it.
func (p *pool[T]) alloc(v *T) uint32 {
	for i := 1; i < len(p.items); i++ {
		if p.items[i] == nil {
			p.items[i] = v
			p.live++
			return uint32(i)
		}
	}
	p.items = append(p.items, v)
	p.live++
	return uint32(len(p.items) - 1)
}

// put stores v at a fixed index, growing the arena as needed. Used when
// restoring snapshots.
func (p *pool[T]) put(i uint32, v *T) {
	for int(i) >= len(p.items) {
		p.items = append(p.items, nil)
	}
	if p.items[i] == nil {
		p.live++
	}
	p.items[i] = v
}

func (p *pool[T]) free(i uint32) {
	if i == 0 || int(i) >= len(p.items) || p.items[i] == nil {
		return
	}
	p.items[i] = nil
	p.live--
	for len(p.items) > 1 && p.items[len(p.items)-1] == nil {
		p.items = p.items[:len(p.items)-1]
	}
}

func (p *pool[T]) count() int { return p.live }

// limit is one past the highest index in use.
func (p *pool[T]) limit() uint32 { return uint32(len(p.items)) }

// each visits live objects in index order. Objects freed during the walk
// are skipped; objects allocated during the walk at higher indices are
// visited.
func (p *pool[T]) each(fn func(i uint32, v *T)) {
	for i := 1; i < len(p.items); i++ {
		if v := p.items[i]; v != nil {
			fn(uint32(i), v)
		}
	}
}
