package rates

import "testing"

func TestWindowAllow(t *testing.T) {
	var w Window
	for i := 0; i < 3; i++ {
		if ok, _ := w.Allow(10, 20, 3); !ok {
			t.Fatalf("event %d refused", i)
		}
	}
	ok, cooldown := w.Allow(14, 20, 3)
	if ok || cooldown != 16 {
		t.Fatalf("fourth event ok=%v cooldown=%d", ok, cooldown)
	}
	if w.Expired(29, 20) || !w.Expired(30, 20) {
		t.Fatalf("expiry wrong at start=%d", w.Start)
	}
	if ok, _ := w.Allow(30, 20, 3); !ok || w.Start != 30 || w.Count != 1 {
		t.Fatalf("new window %+v", w)
	}
}

func TestWindowDisabled(t *testing.T) {
	var w Window
	for i := 0; i < 100; i++ {
		if ok, _ := w.Allow(0, 0, 1); !ok {
			t.Fatalf("zero length window refused")
		}
		if ok, _ := w.Allow(0, 10, 0); !ok {
			t.Fatalf("zero max refused")
		}
	}
}
