package dml

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

const (
	// CompletionRecordSize is the size of a completion record.
	CompletionRecordSize = 32
	// CompletionRecordAlignment is the alignment a completion record must be placed at.
	CompletionRecordAlignment = 32
)

// byte offsets within a completion record
const (
	recStatus         = 0
	recResult         = 1
	recBytesCompleted = 4
	recFaultAddr      = 8
	recCRC            = 16
	recDeltaSize      = 16
	recRefTag         = 16
	recAppTagMask     = 20
	recAppTag         = 22
)

// CompletionRecord receives the outcome of one descriptor.
//
// The record starts zeroed (DSA_COMP_NONE). Exactly one writer moves it to a
// terminal status; the first word, holding status and result, is published
// with an atomic store after every other field is written, and readers
// observe it with an atomic load before touching any other field.
type CompletionRecord [CompletionRecordSize]byte

func (r *CompletionRecord) word() *uint32 {
	return (*uint32)(unsafe.Pointer(&r[recStatus]))
}

// Reset zeroes the record. Must not be called while a submission is pending.
func (r *CompletionRecord) Reset() {
	atomic.StoreUint32(r.word(), 0)
	for i := recBytesCompleted; i < CompletionRecordSize; i++ {
		r[i] = 0
	}
}

// RawStatus returns the status byte masked to the defined status bits.
// Reserved bits, including the status write bit, are ignored.
func (r *CompletionRecord) RawStatus() uint8 {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], atomic.LoadUint32(r.word()))
	return b[recStatus] & DSA_COMP_STATUS_MASK
}

// Done reports whether the record left the pending state.
func (r *CompletionRecord) Done() bool {
	return r.RawStatus() != DSA_COMP_NONE
}

// Complete publishes status and result. Every other field must be written before.
func (r *CompletionRecord) Complete(status, result uint8) {
	var b [4]byte
	b[recStatus] = status
	b[recResult] = result
	atomic.StoreUint32(r.word(), binary.NativeEndian.Uint32(b[:]))
}

// Result is the comparison, delta or DIF outcome byte.
func (r *CompletionRecord) Result() uint8 {
	return r[recResult]
}

// BytesCompleted is also the mismatch offset of compare operations and the
// number of completed descriptors of a batch.
func (r *CompletionRecord) BytesCompleted() uint32 {
	return le.Uint32(r[recBytesCompleted:])
}

func (r *CompletionRecord) SetBytesCompleted(n uint32) {
	le.PutUint32(r[recBytesCompleted:], n)
}

func (r *CompletionRecord) FaultAddress() uint64 {
	return le.Uint64(r[recFaultAddr:])
}

func (r *CompletionRecord) SetFaultAddress(addr uint64) {
	le.PutUint64(r[recFaultAddr:], addr)
}

func (r *CompletionRecord) CRC() uint32 {
	return le.Uint32(r[recCRC:])
}

func (r *CompletionRecord) SetCRC(crc uint32) {
	le.PutUint32(r[recCRC:], crc)
}

func (r *CompletionRecord) DeltaRecordSize() uint32 {
	return le.Uint32(r[recDeltaSize:])
}

func (r *CompletionRecord) SetDeltaRecordSize(size uint32) {
	le.PutUint32(r[recDeltaSize:], size)
}

// DIFTags returns the tags found in the failing block of a DIF operation.
func (r *CompletionRecord) DIFTags() DIFTags {
	return DIFTags{
		RefTag:     le.Uint32(r[recRefTag:]),
		AppTagMask: le.Uint16(r[recAppTagMask:]),
		AppTag:     le.Uint16(r[recAppTag:]),
	}
}

func (r *CompletionRecord) SetDIFTags(tags DIFTags) {
	le.PutUint32(r[recRefTag:], tags.RefTag)
	le.PutUint16(r[recAppTagMask:], tags.AppTagMask)
	le.PutUint16(r[recAppTag:], tags.AppTag)
}

// Address returns the address the record lives at.
func (r *CompletionRecord) Address() uint64 {
	p := unsafe.Pointer(r)
	escape(p)
	return uint64(uintptr(p))
}

// RecordAt interprets memory at addr as a completion record.
func RecordAt(addr uint64) *CompletionRecord {
	return (*CompletionRecord)(pointerAt(addr))
}
