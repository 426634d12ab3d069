package dml

import (
	"encoding/binary"
	"unsafe"
)

const (
	// DescriptorSize is the size of every descriptor.
	DescriptorSize = 64
	// DescriptorAlignment is the alignment a descriptor must be placed at.
	DescriptorAlignment = 64
)

// byte offsets within a descriptor
const (
	descPASID        = 0
	descFlags        = 4
	descOpcode       = 7
	descCompletion   = 8
	descSrc          = 16
	descDst          = 24
	descXferSize     = 32
	descIntHandle    = 36
	descOpSpecific   = 40
	descExpectedRes  = 40
	descDeltaAddr    = 40
	descDeltaRecSize = 40
	descDest2        = 40
	descCRCSeed      = 40
	descCRCSeedAddr  = 48
	descMaxDeltaSize = 48
	descExpResMask   = 56

	// DIF fields
	descSrcDIFFlags  = 40
	descDestDIFFlags = 41
	descDIFFlags     = 42
	descSrcRefTag    = 48
	descSrcAppMask   = 52
	descSrcAppTag    = 54
	descDestRefTag   = 56
	descDestAppMask  = 60
	descDestAppTag   = 62
)

var le = binary.LittleEndian

// Descriptor is the 64-byte request understood by the accelerator.
// Fields live at fixed byte offsets, so the type is an opaque byte array
// with accessors instead of a Go struct.
//
// A Descriptor used for submission must be placed at a 64-byte aligned
// address, see Task and Sequence.
type Descriptor [DescriptorSize]byte

// Reset zeroes every field.
func (d *Descriptor) Reset() {
	*d = Descriptor{}
}

func (d *Descriptor) Opcode() Opcode {
	return Opcode(d[descOpcode])
}

func (d *Descriptor) SetOpcode(op Opcode) {
	d[descOpcode] = uint8(op)
}

// Flags returns the 24-bit flags field.
func (d *Descriptor) Flags() uint32 {
	return uint32(d[descFlags]) | uint32(d[descFlags+1])<<8 | uint32(d[descFlags+2])<<16
}

func (d *Descriptor) SetFlags(flags uint32) {
	flags &= flagsMask
	d[descFlags] = uint8(flags)
	d[descFlags+1] = uint8(flags >> 8)
	d[descFlags+2] = uint8(flags >> 16)
}

// AddFlags sets flags in addition to the ones already present.
func (d *Descriptor) AddFlags(flags uint32) {
	d.SetFlags(d.Flags() | flags)
}

func (d *Descriptor) HasFlags(flags uint32) bool {
	return d.Flags()&flags == flags
}

func (d *Descriptor) PASID() uint32 {
	return le.Uint32(d[descPASID:]) & (1<<20 - 1)
}

func (d *Descriptor) SetPASID(pasid uint32, priv bool) {
	v := pasid & (1<<20 - 1)
	if priv {
		v |= 1 << 31
	}
	le.PutUint32(d[descPASID:], v)
}

func (d *Descriptor) CompletionAddress() uint64 {
	return le.Uint64(d[descCompletion:])
}

func (d *Descriptor) SetCompletionAddress(addr uint64) {
	le.PutUint64(d[descCompletion:], addr)
}

// Src is the source address, the fill pattern, the batch descriptor list or the
// delta record, depending on the opcode.
func (d *Descriptor) Src() uint64 {
	return le.Uint64(d[descSrc:])
}

func (d *Descriptor) SetSrc(v uint64) {
	le.PutUint64(d[descSrc:], v)
}

// Dst is the destination address, the second source or the compare pattern.
func (d *Descriptor) Dst() uint64 {
	return le.Uint64(d[descDst:])
}

func (d *Descriptor) SetDst(v uint64) {
	le.PutUint64(d[descDst:], v)
}

// TransferSize doubles as descriptor count for batches.
func (d *Descriptor) TransferSize() uint32 {
	return le.Uint32(d[descXferSize:])
}

func (d *Descriptor) SetTransferSize(size uint32) {
	le.PutUint32(d[descXferSize:], size)
}

func (d *Descriptor) InterruptHandle() uint16 {
	return le.Uint16(d[descIntHandle:])
}

func (d *Descriptor) SetInterruptHandle(h uint16) {
	le.PutUint16(d[descIntHandle:], h)
}

func (d *Descriptor) ExpectedResult() uint8 {
	return d[descExpectedRes]
}

func (d *Descriptor) SetExpectedResult(v uint8) {
	d[descExpectedRes] = v
}

func (d *Descriptor) DeltaAddress() uint64 {
	return le.Uint64(d[descDeltaAddr:])
}

func (d *Descriptor) SetDeltaAddress(addr uint64) {
	le.PutUint64(d[descDeltaAddr:], addr)
}

func (d *Descriptor) MaxDeltaSize() uint32 {
	return le.Uint32(d[descMaxDeltaSize:])
}

func (d *Descriptor) SetMaxDeltaSize(size uint32) {
	le.PutUint32(d[descMaxDeltaSize:], size)
}

func (d *Descriptor) ExpectedResultMask() uint8 {
	return d[descExpResMask]
}

func (d *Descriptor) SetExpectedResultMask(mask uint8) {
	d[descExpResMask] = mask
}

// DeltaRecordSize is used by apply_delta.
func (d *Descriptor) DeltaRecordSize() uint32 {
	return le.Uint32(d[descDeltaRecSize:])
}

func (d *Descriptor) SetDeltaRecordSize(size uint32) {
	le.PutUint32(d[descDeltaRecSize:], size)
}

func (d *Descriptor) Dest2() uint64 {
	return le.Uint64(d[descDest2:])
}

func (d *Descriptor) SetDest2(addr uint64) {
	le.PutUint64(d[descDest2:], addr)
}

func (d *Descriptor) CRCSeed() uint32 {
	return le.Uint32(d[descCRCSeed:])
}

func (d *Descriptor) SetCRCSeed(seed uint32) {
	le.PutUint32(d[descCRCSeed:], seed)
}

func (d *Descriptor) CRCSeedAddress() uint64 {
	return le.Uint64(d[descCRCSeedAddr:])
}

func (d *Descriptor) SetCRCSeedAddress(addr uint64) {
	le.PutUint64(d[descCRCSeedAddr:], addr)
}

// SourceDIF returns the source DIF flags, the DIF operation flags and the
// source tags used for checking.
func (d *Descriptor) SourceDIF() (flags DIFFlags, opFlags DIFOpFlags, tags DIFTags) {
	return DIFFlags(d[descSrcDIFFlags]), DIFOpFlags(d[descDIFFlags]), DIFTags{
		RefTag:     le.Uint32(d[descSrcRefTag:]),
		AppTagMask: le.Uint16(d[descSrcAppMask:]),
		AppTag:     le.Uint16(d[descSrcAppTag:]),
	}
}

func (d *Descriptor) SetSourceDIF(flags DIFFlags, opFlags DIFOpFlags, tags DIFTags) {
	d[descSrcDIFFlags] = uint8(flags)
	d[descDIFFlags] = uint8(opFlags)
	le.PutUint32(d[descSrcRefTag:], tags.RefTag)
	le.PutUint16(d[descSrcAppMask:], tags.AppTagMask)
	le.PutUint16(d[descSrcAppTag:], tags.AppTag)
}

// DestDIF returns the destination DIF flags and the tags to generate.
func (d *Descriptor) DestDIF() (flags DIFFlags, tags DIFTags) {
	return DIFFlags(d[descDestDIFFlags]), DIFTags{
		RefTag:     le.Uint32(d[descDestRefTag:]),
		AppTagMask: le.Uint16(d[descDestAppMask:]),
		AppTag:     le.Uint16(d[descDestAppTag:]),
	}
}

func (d *Descriptor) SetDestDIF(flags DIFFlags, tags DIFTags) {
	d[descDestDIFFlags] = uint8(flags)
	le.PutUint32(d[descDestRefTag:], tags.RefTag)
	le.PutUint16(d[descDestAppMask:], tags.AppTagMask)
	le.PutUint16(d[descDestAppTag:], tags.AppTag)
}

// Address returns the address the descriptor lives at.
func (d *Descriptor) Address() uint64 {
	p := unsafe.Pointer(d)
	escape(p)
	return uint64(uintptr(p))
}

// DescriptorAt interprets memory at addr as a descriptor.
func DescriptorAt(addr uint64) *Descriptor {
	return (*Descriptor)(pointerAt(addr))
}
