package dml

// Builders below populate the operation fields of a descriptor. They never
// touch the completion address and expect the descriptor to be reset.
// Buffers passed to a builder are moved to the heap by AddressOf.

// PrepNop ...
func PrepNop(d *Descriptor, flags uint32) {
	d.SetOpcode(DSA_OPCODE_NOOP)
	d.SetFlags(flags)
}

// PrepDrain ...
func PrepDrain(d *Descriptor, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DRAIN)
	d.SetFlags(flags)
}

// PrepBatch points the descriptor at count sub-descriptors starting at list.
func PrepBatch(d *Descriptor, list uint64, count uint32, flags uint32) {
	d.SetOpcode(DSA_OPCODE_BATCH)
	d.SetFlags(flags)
	d.SetSrc(list)
	d.SetTransferSize(count)
}

// PrepMemMove ...
func PrepMemMove(d *Descriptor, src, dst []byte, flags uint32) {
	d.SetOpcode(DSA_OPCODE_MEMMOVE)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(src)))
}

// PrepFill ...
func PrepFill(d *Descriptor, pattern uint64, dst []byte, flags uint32) {
	d.SetOpcode(DSA_OPCODE_MEMFILL)
	d.SetFlags(flags)
	d.SetSrc(pattern)
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(dst)))
}

// PrepCompare ...
func PrepCompare(d *Descriptor, a, b []byte, flags uint32, expected uint8) {
	d.SetOpcode(DSA_OPCODE_COMPARE)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(a))
	d.SetDst(AddressOf(b))
	d.SetTransferSize(uint32(len(a)))
	d.SetExpectedResult(expected)
}

// PrepComparePattern ...
func PrepComparePattern(d *Descriptor, src []byte, pattern uint64, flags uint32, expected uint8) {
	d.SetOpcode(DSA_OPCODE_COMPVAL)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(pattern)
	d.SetTransferSize(uint32(len(src)))
	d.SetExpectedResult(expected)
}

// PrepCreateDelta records blocks of src2 that differ from src1 into delta.
func PrepCreateDelta(d *Descriptor, src1, src2, delta []byte, flags uint32, expectedMask uint8) {
	d.SetOpcode(DSA_OPCODE_CR_DELTA)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src1))
	d.SetDst(AddressOf(src2))
	d.SetTransferSize(uint32(len(src1)))
	d.SetDeltaAddress(AddressOf(delta))
	d.SetMaxDeltaSize(uint32(len(delta)))
	d.SetExpectedResultMask(expectedMask)
}

// PrepApplyDelta applies every record in delta to dst.
func PrepApplyDelta(d *Descriptor, delta, dst []byte, flags uint32) {
	d.SetOpcode(DSA_OPCODE_AP_DELTA)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(delta))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(dst)))
	d.SetDeltaRecordSize(uint32(len(delta)))
}

// PrepDualcast ...
func PrepDualcast(d *Descriptor, src, dst1, dst2 []byte, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DUALCAST)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst1))
	d.SetDest2(AddressOf(dst2))
	d.SetTransferSize(uint32(len(src)))
}

// PrepCRC ...
func PrepCRC(d *Descriptor, src []byte, seed uint32, flags uint32) {
	d.SetOpcode(DSA_OPCODE_CRCGEN)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetTransferSize(uint32(len(src)))
	d.SetCRCSeed(seed)
}

// PrepCopyCRC ...
func PrepCopyCRC(d *Descriptor, src, dst []byte, seed uint32, flags uint32) {
	d.SetOpcode(DSA_OPCODE_COPY_CRC)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(src)))
	d.SetCRCSeed(seed)
}

// PrepDIFCheck ...
func PrepDIFCheck(d *Descriptor, src []byte, srcFlags DIFFlags, opFlags DIFOpFlags, tags DIFTags, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DIF_CHECK)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetTransferSize(uint32(len(src)))
	d.SetSourceDIF(srcFlags, opFlags, tags)
}

// PrepDIFInsert ...
func PrepDIFInsert(d *Descriptor, src, dst []byte, dstFlags DIFFlags, tags DIFTags, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DIF_INS)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(src)))
	d.SetDestDIF(dstFlags, tags)
}

// PrepDIFStrip ...
func PrepDIFStrip(d *Descriptor, src, dst []byte, srcFlags DIFFlags, opFlags DIFOpFlags, tags DIFTags, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DIF_STRP)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(src)))
	d.SetSourceDIF(srcFlags, opFlags, tags)
}

// PrepDIFUpdate ...
func PrepDIFUpdate(d *Descriptor, src, dst []byte, srcFlags, dstFlags DIFFlags, opFlags DIFOpFlags, srcTags, dstTags DIFTags, flags uint32) {
	d.SetOpcode(DSA_OPCODE_DIF_UPDT)
	d.SetFlags(flags)
	d.SetSrc(AddressOf(src))
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(src)))
	d.SetSourceDIF(srcFlags, opFlags, srcTags)
	d.SetDestDIF(dstFlags, dstTags)
}

// PrepCacheFlush ...
func PrepCacheFlush(d *Descriptor, dst []byte, flags uint32) {
	d.SetOpcode(DSA_OPCODE_CFLUSH)
	d.SetFlags(flags)
	d.SetDst(AddressOf(dst))
	d.SetTransferSize(uint32(len(dst)))
}
