package digestcodec

import (
	"bytes"
	"testing"
)

func TestMapEncodingIgnoresOrderAndZeros(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteSortedNonZeroIntMap(&a, &tmp, map[string]int{"plank": 3, "stone": 1, "fish": 0})
	WriteSortedNonZeroIntMap(&b, &tmp, map[string]int{"stone": 1, "plank": 3})
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("encodings differ")
	}
	if a.Len() != len("plank")+8+len("stone")+8 {
		t.Fatalf("unexpected length %d", a.Len())
	}
}

func TestBoolsPacksInOrder(t *testing.T) {
	var buf bytes.Buffer
	var tmp [8]byte
	Bools(&buf, &tmp, true, false, true)
	if got := buf.Bytes()[0]; got != 5 {
		t.Fatalf("packed = %d, want 5", got)
	}
}

func TestIntsLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	var tmp [8]byte
	Ints(&buf, &tmp, []int{-1})
	b := buf.Bytes()
	if len(b) != 16 || b[0] != 1 || b[8] != 0xff || b[15] != 0xff {
		t.Fatalf("unexpected bytes %v", b)
	}
}
