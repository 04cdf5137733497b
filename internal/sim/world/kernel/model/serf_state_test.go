package model

import "testing"

func TestStateNamesRoundTrip(t *testing.T) {
	for s := StateNull; int(s) < StateCount; s++ {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Fatalf("state %d: %v %v", s, got, err)
		}
	}
}

func TestNewPayloadMatchesGroup(t *testing.T) {
	for s := StateNull; int(s) < StateCount; s++ {
		p := NewPayload(s)
		g := GroupOf(s)
		if g == GroupNone {
			if p != nil {
				t.Fatalf("%v: unexpected payload %T", s, p)
			}
			continue
		}
		if p == nil || p.Group() != g {
			t.Fatalf("%v: payload %T does not match group %d", s, p, g)
		}
	}
}
