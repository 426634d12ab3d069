package dml

// Operation is an operation that can be validated and encoded into a descriptor.
type Operation interface {
	Opcode() Opcode
	// Validate reports the first failed pre-submission rule.
	Validate(l Limits) Status
	// Populate writes the operation into a reset descriptor.
	Populate(d *Descriptor)
}

// Op is an Operation with a typed result.
type Op[R any] interface {
	Operation
	// Decode reads the result from a completed record.
	Decode(r *CompletionRecord) R
	// Failed is the result of an operation that never reached execution.
	Failed(st Status) R
}

// Nop completes without touching memory. With a fence it orders batch members.
type Nop struct {
	flags uint32
}

func NewNop() Nop { return Nop{} }

// Fence makes the nop wait for every earlier descriptor of the batch.
func (o Nop) Fence() Nop {
	o.flags |= IDXD_OP_FLAG_FENCE
	return o
}

func (o Nop) Opcode() Opcode                    { return DSA_OPCODE_NOOP }
func (o Nop) Populate(d *Descriptor)            { PrepNop(d, o.flags) }
func (o Nop) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o Nop) Failed(st Status) Result           { return failed(st) }

// Drain completes after every earlier descriptor of the same queue.
type Drain struct{}

func NewDrain() Drain { return Drain{} }

func (o Drain) Opcode() Opcode                    { return DSA_OPCODE_DRAIN }
func (o Drain) Populate(d *Descriptor)            { PrepDrain(d, 0) }
func (o Drain) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o Drain) Failed(st Status) Result           { return failed(st) }

// MemMove copies Src into the head of Dst.
type MemMove struct {
	Src, Dst []byte
	flags    uint32
}

func NewMemMove(src, dst []byte) MemMove {
	return MemMove{Src: src, Dst: dst}
}

// BlockOnFault resolves page faults instead of returning a partial completion.
func (o MemMove) BlockOnFault() MemMove {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

// CacheControl hints that the destination should be written into the cache.
func (o MemMove) CacheControl() MemMove {
	o.flags |= IDXD_OP_FLAG_CC
	return o
}

func (o MemMove) Opcode() Opcode                    { return DSA_OPCODE_MEMMOVE }
func (o MemMove) Populate(d *Descriptor)            { PrepMemMove(d, o.Src, o.Dst, o.flags) }
func (o MemMove) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o MemMove) Failed(st Status) Result           { return failed(st) }

// Fill repeats the 8-byte little-endian Pattern over Dst. A trailing
// partial pattern is truncated.
type Fill struct {
	Pattern uint64
	Dst     []byte
	flags   uint32
}

func NewFill(pattern uint64, dst []byte) Fill {
	return Fill{Pattern: pattern, Dst: dst}
}

func (o Fill) BlockOnFault() Fill {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o Fill) CacheControl() Fill {
	o.flags |= IDXD_OP_FLAG_CC
	return o
}

func (o Fill) Opcode() Opcode                    { return DSA_OPCODE_MEMFILL }
func (o Fill) Populate(d *Descriptor)            { PrepFill(d, o.Pattern, o.Dst, o.flags) }
func (o Fill) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o Fill) Failed(st Status) Result           { return failed(st) }

// Compare compares A and B byte by byte.
type Compare struct {
	A, B     []byte
	flags    uint32
	expected uint8
}

func NewCompare(a, b []byte) Compare {
	return Compare{A: a, B: b}
}

// ExpectEqual reports false_predicate unless the buffers are equal.
func (o Compare) ExpectEqual() Compare {
	o.flags |= IDXD_OP_FLAG_CR
	o.expected = ResultEqual
	return o
}

// ExpectNotEqual reports false_predicate unless the buffers differ.
func (o Compare) ExpectNotEqual() Compare {
	o.flags |= IDXD_OP_FLAG_CR
	o.expected = ResultNotEqual
	return o
}

func (o Compare) BlockOnFault() Compare {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o Compare) Opcode() Opcode { return DSA_OPCODE_COMPARE }

func (o Compare) Populate(d *Descriptor) {
	PrepCompare(d, o.A, o.B, o.flags, o.expected)
}

func (o Compare) Decode(r *CompletionRecord) CompareResult { return decodeCompare(r) }
func (o Compare) Failed(st Status) CompareResult           { return CompareResult{Result: failed(st)} }

// ComparePattern compares Src against the repeated 8-byte Pattern.
type ComparePattern struct {
	Src      []byte
	Pattern  uint64
	flags    uint32
	expected uint8
}

func NewComparePattern(src []byte, pattern uint64) ComparePattern {
	return ComparePattern{Src: src, Pattern: pattern}
}

func (o ComparePattern) ExpectEqual() ComparePattern {
	o.flags |= IDXD_OP_FLAG_CR
	o.expected = ResultEqual
	return o
}

func (o ComparePattern) ExpectNotEqual() ComparePattern {
	o.flags |= IDXD_OP_FLAG_CR
	o.expected = ResultNotEqual
	return o
}

func (o ComparePattern) BlockOnFault() ComparePattern {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o ComparePattern) Opcode() Opcode { return DSA_OPCODE_COMPVAL }

func (o ComparePattern) Populate(d *Descriptor) {
	PrepComparePattern(d, o.Src, o.Pattern, o.flags, o.expected)
}

func (o ComparePattern) Decode(r *CompletionRecord) CompareResult { return decodeCompare(r) }
func (o ComparePattern) Failed(st Status) CompareResult           { return CompareResult{Result: failed(st)} }

// CreateDelta writes a delta record describing how Src2 differs from Src1.
type CreateDelta struct {
	Src1, Src2, Delta []byte
	flags             uint32
	mask              uint8
}

func NewCreateDelta(src1, src2, delta []byte) CreateDelta {
	return CreateDelta{Src1: src1, Src2: src2, Delta: delta}
}

// ExpectEqual reports false_predicate when the sources differ.
func (o CreateDelta) ExpectEqual() CreateDelta {
	o.flags |= IDXD_OP_FLAG_CR
	o.mask = 1 << ResultEqual
	return o
}

func (o CreateDelta) BlockOnFault() CreateDelta {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o CreateDelta) Opcode() Opcode { return DSA_OPCODE_CR_DELTA }

func (o CreateDelta) Populate(d *Descriptor) {
	PrepCreateDelta(d, o.Src1, o.Src2, o.Delta, o.flags, o.mask)
}

func (o CreateDelta) Decode(r *CompletionRecord) DeltaResult { return decodeDelta(r) }
func (o CreateDelta) Failed(st Status) DeltaResult           { return DeltaResult{Result: failed(st)} }

// ApplyDelta applies a delta record created by CreateDelta to Dst.
type ApplyDelta struct {
	Delta, Dst []byte
	flags      uint32
}

// NewApplyDelta applies delta to dst. Slice delta to the record size
// reported by CreateDelta.
func NewApplyDelta(delta, dst []byte) ApplyDelta {
	return ApplyDelta{Delta: delta, Dst: dst}
}

func (o ApplyDelta) BlockOnFault() ApplyDelta {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o ApplyDelta) Opcode() Opcode                    { return DSA_OPCODE_AP_DELTA }
func (o ApplyDelta) Populate(d *Descriptor)            { PrepApplyDelta(d, o.Delta, o.Dst, o.flags) }
func (o ApplyDelta) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o ApplyDelta) Failed(st Status) Result           { return failed(st) }

// Dualcast copies Src into both destinations. The destinations must share
// the low 12 address bits.
type Dualcast struct {
	Src, Dst1, Dst2 []byte
	flags           uint32
}

func NewDualcast(src, dst1, dst2 []byte) Dualcast {
	return Dualcast{Src: src, Dst1: dst1, Dst2: dst2}
}

func (o Dualcast) BlockOnFault() Dualcast {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o Dualcast) CacheControl() Dualcast {
	o.flags |= IDXD_OP_FLAG_CC
	return o
}

func (o Dualcast) Opcode() Opcode                    { return DSA_OPCODE_DUALCAST }
func (o Dualcast) Populate(d *Descriptor)            { PrepDualcast(d, o.Src, o.Dst1, o.Dst2, o.flags) }
func (o Dualcast) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o Dualcast) Failed(st Status) Result           { return failed(st) }

// CRC computes CRC-32C over Src starting from Seed.
type CRC struct {
	Src   []byte
	Seed  uint32
	flags uint32
}

func NewCRC(src []byte, seed uint32) CRC {
	return CRC{Src: src, Seed: seed}
}

// BypassReflection processes data bits most significant first.
func (o CRC) BypassReflection() CRC {
	o.flags |= IDXD_OP_FLAG_CRC_BYPASS_REFLECT
	return o
}

// BypassInversion skips the inversion of the seed and the result.
func (o CRC) BypassInversion() CRC {
	o.flags |= IDXD_OP_FLAG_CRC_BYPASS_INVERT
	return o
}

func (o CRC) BlockOnFault() CRC {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o CRC) Opcode() Opcode                       { return DSA_OPCODE_CRCGEN }
func (o CRC) Populate(d *Descriptor)               { PrepCRC(d, o.Src, o.Seed, o.flags) }
func (o CRC) Decode(r *CompletionRecord) CRCResult { return decodeCRC(r) }
func (o CRC) Failed(st Status) CRCResult           { return CRCResult{Result: failed(st)} }

// CopyCRC copies Src into Dst and computes CRC-32C over the copied bytes.
type CopyCRC struct {
	Src, Dst []byte
	Seed     uint32
	flags    uint32
}

func NewCopyCRC(src, dst []byte, seed uint32) CopyCRC {
	return CopyCRC{Src: src, Dst: dst, Seed: seed}
}

func (o CopyCRC) BypassReflection() CopyCRC {
	o.flags |= IDXD_OP_FLAG_CRC_BYPASS_REFLECT
	return o
}

func (o CopyCRC) BypassInversion() CopyCRC {
	o.flags |= IDXD_OP_FLAG_CRC_BYPASS_INVERT
	return o
}

func (o CopyCRC) BlockOnFault() CopyCRC {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o CopyCRC) Opcode() Opcode                       { return DSA_OPCODE_COPY_CRC }
func (o CopyCRC) Populate(d *Descriptor)               { PrepCopyCRC(d, o.Src, o.Dst, o.Seed, o.flags) }
func (o CopyCRC) Decode(r *CompletionRecord) CRCResult { return decodeCRC(r) }
func (o CopyCRC) Failed(st Status) CRCResult           { return CRCResult{Result: failed(st)} }

// DIFCheck verifies the protection information of every block in Src.
type DIFCheck struct {
	Src   []byte
	Flags DIFFlags
	Skip  DIFOpFlags
	Tags  DIFTags
	flags uint32
}

func NewDIFCheck(src []byte, flags DIFFlags, tags DIFTags) DIFCheck {
	return DIFCheck{Src: src, Flags: flags, Tags: tags}
}

// Skipping disables the given checks.
func (o DIFCheck) Skipping(skip DIFOpFlags) DIFCheck {
	o.Skip |= skip
	return o
}

func (o DIFCheck) BlockOnFault() DIFCheck {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o DIFCheck) Opcode() Opcode { return DSA_OPCODE_DIF_CHECK }

func (o DIFCheck) Populate(d *Descriptor) {
	PrepDIFCheck(d, o.Src, o.Flags, o.Skip, o.Tags, o.flags)
}

func (o DIFCheck) Decode(r *CompletionRecord) DIFResult { return decodeDIF(r) }
func (o DIFCheck) Failed(st Status) DIFResult           { return DIFResult{Result: failed(st)} }

// DIFInsert copies Src into Dst appending protection information after every block.
type DIFInsert struct {
	Src, Dst []byte
	Flags    DIFFlags
	Tags     DIFTags
	flags    uint32
}

func NewDIFInsert(src, dst []byte, flags DIFFlags, tags DIFTags) DIFInsert {
	return DIFInsert{Src: src, Dst: dst, Flags: flags, Tags: tags}
}

func (o DIFInsert) BlockOnFault() DIFInsert {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o DIFInsert) Opcode() Opcode { return DSA_OPCODE_DIF_INS }

func (o DIFInsert) Populate(d *Descriptor) {
	PrepDIFInsert(d, o.Src, o.Dst, o.Flags, o.Tags, o.flags)
}

func (o DIFInsert) Decode(r *CompletionRecord) DIFResult { return decodeDIF(r) }
func (o DIFInsert) Failed(st Status) DIFResult           { return DIFResult{Result: failed(st)} }

// DIFStrip checks and removes the protection information of Src into Dst.
type DIFStrip struct {
	Src, Dst []byte
	Flags    DIFFlags
	Skip     DIFOpFlags
	Tags     DIFTags
	flags    uint32
}

func NewDIFStrip(src, dst []byte, flags DIFFlags, tags DIFTags) DIFStrip {
	return DIFStrip{Src: src, Dst: dst, Flags: flags, Tags: tags}
}

func (o DIFStrip) Skipping(skip DIFOpFlags) DIFStrip {
	o.Skip |= skip
	return o
}

func (o DIFStrip) BlockOnFault() DIFStrip {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o DIFStrip) Opcode() Opcode { return DSA_OPCODE_DIF_STRP }

func (o DIFStrip) Populate(d *Descriptor) {
	PrepDIFStrip(d, o.Src, o.Dst, o.Flags, o.Skip, o.Tags, o.flags)
}

func (o DIFStrip) Decode(r *CompletionRecord) DIFResult { return decodeDIF(r) }
func (o DIFStrip) Failed(st Status) DIFResult           { return DIFResult{Result: failed(st)} }

// DIFUpdate checks the protection information of Src and rewrites it with
// the destination tags into Dst.
type DIFUpdate struct {
	Src, Dst           []byte
	SrcFlags, DstFlags DIFFlags
	Skip               DIFOpFlags
	SrcTags, DstTags   DIFTags
	flags              uint32
}

func NewDIFUpdate(src, dst []byte, srcFlags, dstFlags DIFFlags, srcTags, dstTags DIFTags) DIFUpdate {
	return DIFUpdate{
		Src:      src,
		Dst:      dst,
		SrcFlags: srcFlags,
		DstFlags: dstFlags,
		SrcTags:  srcTags,
		DstTags:  dstTags,
	}
}

func (o DIFUpdate) Skipping(skip DIFOpFlags) DIFUpdate {
	o.Skip |= skip
	return o
}

func (o DIFUpdate) BlockOnFault() DIFUpdate {
	o.flags |= IDXD_OP_FLAG_BOF
	return o
}

func (o DIFUpdate) Opcode() Opcode { return DSA_OPCODE_DIF_UPDT }

func (o DIFUpdate) Populate(d *Descriptor) {
	PrepDIFUpdate(d, o.Src, o.Dst, o.SrcFlags, o.DstFlags, o.Skip, o.SrcTags, o.DstTags, o.flags)
}

func (o DIFUpdate) Decode(r *CompletionRecord) DIFResult { return decodeDIF(r) }
func (o DIFUpdate) Failed(st Status) DIFResult           { return DIFResult{Result: failed(st)} }

// CacheFlush writes back and invalidates the cache lines covering Dst.
type CacheFlush struct {
	Dst   []byte
	flags uint32
}

func NewCacheFlush(dst []byte) CacheFlush {
	return CacheFlush{Dst: dst}
}

// KeepCached writes lines back without invalidating them.
func (o CacheFlush) KeepCached() CacheFlush {
	o.flags |= IDXD_OP_FLAG_CC
	return o
}

func (o CacheFlush) Opcode() Opcode                    { return DSA_OPCODE_CFLUSH }
func (o CacheFlush) Populate(d *Descriptor)            { PrepCacheFlush(d, o.Dst, o.flags) }
func (o CacheFlush) Decode(r *CompletionRecord) Result { return Decode(r) }
func (o CacheFlush) Failed(st Status) Result           { return failed(st) }
