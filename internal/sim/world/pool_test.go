package world

import "testing"

func TestPoolReusesLowestIndex(t *testing.T) {
	p := newPool[int]()
	a, b, c := 1, 2, 3
	ia := p.alloc(&a)
	ib := p.alloc(&b)
	ic := p.alloc(&c)
	if ia != 1 || ib != 2 || ic != 3 {
		t.Fatalf("indices %d %d %d", ia, ib, ic)
	}
	p.free(ib)
	if p.get(ib) != nil {
		t.Fatalf("freed index still resolves")
	}
	d := 4
	if id := p.alloc(&d); id != 2 {
		t.Fatalf("expected reuse of 2, got %d", id)
	}
	if p.get(0) != nil {
		t.Fatalf("index 0 must be null")
	}
	if p.count() != 3 {
		t.Fatalf("count = %d", p.count())
	}
}

func TestPoolEachSkipsFreed(t *testing.T) {
	p := newPool[int]()
	vals := []int{10, 20, 30}
	for i := range vals {
		p.alloc(&vals[i])
	}
	var seen []int
	p.each(func(i uint32, v *int) {
		seen = append(seen, *v)
		if i == 1 {
			p.free(2)
		}
	})
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Fatalf("seen %v", seen)
	}
}
