package catalogs

import "testing"

func TestNamesRoundTrip(t *testing.T) {
	for r := Fish; r <= GroupFood; r++ {
		p, err := ParseResource(r.String())
		if err != nil || p != r {
			t.Fatalf("resource %d: %v %v", r, p, err)
		}
	}
	for s := SerfTransporter; s <= SerfDead; s++ {
		p, err := ParseSerfType(s.String())
		if err != nil || p != s {
			t.Fatalf("serf type %d: %v %v", s, p, err)
		}
	}
	for b := BuildingNone; b <= BuildingCastle; b++ {
		p, err := ParseBuildingType(b.String())
		if err != nil || p != b {
			t.Fatalf("building %d: %v %v", b, p, err)
		}
	}
}

func TestRoutableExcludesToolsAndWeapons(t *testing.T) {
	for r := Shovel; r <= Shield; r++ {
		if Routable[r] {
			t.Fatalf("%v must not be routable", r)
		}
	}
	if Routable[Boat] {
		t.Fatalf("boat must not be routable")
	}
	if !Routable[GoldOre] || !Routable[Plank] {
		t.Fatalf("raw materials must be routable")
	}
}

func TestKnightRank(t *testing.T) {
	if SerfKnight0.KnightRank() != 0 || SerfKnight4.KnightRank() != 4 || SerfGeneric.KnightRank() != -1 {
		t.Fatalf("unexpected knight ranks")
	}
}

func TestRoadLengthBuckets(t *testing.T) {
	want := map[int]int{0: 0, 3: 0, 4: 1, 5: 1, 6: 2, 7: 3, 9: 3, 10: 4, 12: 4, 13: 5, 17: 5, 18: 6, 23: 6, 24: 7, 200: 7}
	for n, v := range want {
		if got := RoadLengthCategory(n); got != v {
			t.Fatalf("RoadLengthCategory(%d)=%d want %d", n, got, v)
		}
	}
	prev := 0
	for n := 0; n < 100; n++ {
		c := RoadLengthCategory(n)
		if c < prev || c > 7 {
			t.Fatalf("category not monotonic at %d: %d after %d", n, c, prev)
		}
		prev = c
	}
	if MaxTransporters[RoadLengthCategory(5)] != 2 {
		t.Fatalf("length 5 should allow 2 transporters")
	}
}
