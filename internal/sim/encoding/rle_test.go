package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10, 0xffff)

	out, err := DecodeRLE(EncodeRLE(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeLayer_ChecksLength(t *testing.T) {
	enc := EncodeRLE(make([]uint16, 64))
	if _, err := DecodeLayer(enc, 64); err != nil {
		t.Fatalf("exact: %v", err)
	}
	if _, err := DecodeLayer(enc, 63); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeLayer(enc, 65); err == nil {
		t.Fatalf("expected short layer error")
	}
	if _, err := DecodeRLE("!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
}
