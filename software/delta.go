package software

import (
	"encoding/binary"

	"github.com/dshulyak/dml"
)

// CreateDelta writes one entry into delta for every 8-byte block of modified
// that differs from original. It returns the number of bytes written and
// false if delta was too small to hold every entry.
func CreateDelta(original, modified, delta []byte) (int, bool) {
	n := 0
	for off := 0; off+dml.DeltaBlockSize <= len(original); off += dml.DeltaBlockSize {
		a := binary.LittleEndian.Uint64(original[off:])
		b := binary.LittleEndian.Uint64(modified[off:])
		if a == b {
			continue
		}
		if n+dml.DeltaRecordEntrySize > len(delta) {
			return n, false
		}
		binary.LittleEndian.PutUint16(delta[n:], uint16(off/dml.DeltaBlockSize))
		binary.LittleEndian.PutUint64(delta[n+2:], b)
		n += dml.DeltaRecordEntrySize
	}
	return n, true
}

// ApplyDelta patches dst with every entry of delta. It returns a raw
// completion status.
func ApplyDelta(delta, dst []byte) uint8 {
	prev := -1
	for n := 0; n+dml.DeltaRecordEntrySize <= len(delta); n += dml.DeltaRecordEntrySize {
		index := int(binary.LittleEndian.Uint16(delta[n:]))
		if index <= prev {
			return dml.DSA_COMP_DR_OFFSET_NOINC
		}
		off := index * dml.DeltaBlockSize
		if off+dml.DeltaBlockSize > len(dst) {
			return dml.DSA_COMP_DR_OFFSET_ERANGE
		}
		copy(dst[off:off+dml.DeltaBlockSize], delta[n+2:n+dml.DeltaRecordEntrySize])
		prev = index
	}
	return dml.DSA_COMP_SUCCESS
}

func createDelta(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	size := d.TransferSize()
	if size%dml.DeltaBlockSize != 0 || size > dml.MaxDeltaSourceSize {
		return dml.DSA_COMP_XFER_ERANGE, 0
	}
	limit := d.MaxDeltaSize()
	if limit%dml.DeltaRecordEntrySize != 0 || limit > dml.MaxDeltaRecordSize {
		return dml.DSA_COMP_DR_ERANGE, 0
	}
	n, ok := CreateDelta(dml.Bytes(d.Src(), size), dml.Bytes(d.Dst(), size), dml.Bytes(d.DeltaAddress(), limit))
	r.SetDeltaRecordSize(uint32(n))
	result := dml.ResultEqual
	switch {
	case !ok:
		result = dml.ResultOverflow
	case n > 0:
		result = dml.ResultNotEqual
	}
	status := dml.DSA_COMP_SUCCESS
	if d.HasFlags(dml.IDXD_OP_FLAG_CR) && d.ExpectedResultMask()&(1<<result) == 0 {
		status = dml.DSA_COMP_SUCCESS_PRED
	}
	return status, result
}

func applyDelta(d *dml.Descriptor, r *dml.CompletionRecord) uint8 {
	size := d.TransferSize()
	if size%dml.DeltaBlockSize != 0 || size > dml.MaxDeltaSourceSize {
		return dml.DSA_COMP_XFER_ERANGE
	}
	n := d.DeltaRecordSize()
	if n == 0 || n%dml.DeltaRecordEntrySize != 0 || n > dml.MaxDeltaRecordSize {
		return dml.DSA_COMP_DR_ERANGE
	}
	return ApplyDelta(dml.Bytes(d.Src(), n), dml.Bytes(d.Dst(), size))
}
