package software

import (
	"bytes"

	"github.com/dshulyak/dml"
)

// Mismatch returns the offset of the first differing byte, or -1.
func Mismatch(a, b []byte) int {
	n := min(len(a), len(b))
	const chunk = 256
	for off := 0; off < n; off += chunk {
		end := min(off+chunk, n)
		if bytes.Equal(a[off:end], b[off:end]) {
			continue
		}
		for i := off; i < end; i++ {
			if a[i] != b[i] {
				return i
			}
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

func compare(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	n := d.TransferSize()
	off := Mismatch(dml.Bytes(d.Src(), n), dml.Bytes(d.Dst(), n))
	return compared(d, r, off)
}

func comparePattern(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	src := dml.Bytes(d.Src(), d.TransferSize())
	pattern := d.Dst()
	off := -1
	for i := range src {
		if src[i] != byte(pattern>>(8*(i%8))) {
			off = i
			break
		}
	}
	return compared(d, r, off)
}

func compared(d *dml.Descriptor, r *dml.CompletionRecord, off int) (uint8, uint8) {
	if off < 0 {
		return predicate(d, dml.ResultEqual), dml.ResultEqual
	}
	r.SetBytesCompleted(uint32(off))
	return predicate(d, dml.ResultNotEqual), dml.ResultNotEqual
}
