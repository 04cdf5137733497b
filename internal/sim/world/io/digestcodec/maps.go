package digestcodec

import "sort"

// WriteSortedNonZeroIntMap emits a deterministic key-sorted map encoding,
// skipping zero values to keep digest payload stable and compact.
func WriteSortedNonZeroIntMap(w Writer, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.Write([]byte(k))
		I64(w, tmp, int64(m[k]))
	}
}

// Ints writes the length of vs and then every value.
func Ints(w Writer, tmp *[8]byte, vs []int) {
	U64(w, tmp, uint64(len(vs)))
	for _, v := range vs {
		I64(w, tmp, int64(v))
	}
}
