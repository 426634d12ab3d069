package software

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshulyak/dml"
	"github.com/dshulyak/dml/arena"
)

var crcInput = []byte("Calculate CRC value for this string...\n")

func TestCRCReference(t *testing.T) {
	res := dml.Execute(New(), dml.NewCRC(crcInput, 0))
	require.NoError(t, res.Err())
	require.Equal(t, uint32(0x75c96acb), res.CRC)
}

func TestCRC32CVariants(t *testing.T) {
	check := []byte("123456789")
	for _, tc := range []struct {
		desc  string
		seed  uint32
		input []byte
		flags uint32
		crc   uint32
	}{
		{desc: "check", input: check, crc: 0xe3069283},
		{desc: "reference", input: crcInput, crc: 0x75c96acb},
		{desc: "seed", seed: 0x12345678, input: crcInput, crc: 0x972fb261},
		{desc: "bypass inversion", input: crcInput, flags: dml.IDXD_OP_FLAG_CRC_BYPASS_INVERT, crc: 0x767aca50},
		{desc: "bypass reflection", input: check, flags: dml.IDXD_OP_FLAG_CRC_BYPASS_REFLECT, crc: 0x05440f15},
		{desc: "bypass reflection reference", input: crcInput, flags: dml.IDXD_OP_FLAG_CRC_BYPASS_REFLECT, crc: 0x62109e7f},
		{
			desc:  "bypass both",
			input: crcInput,
			flags: dml.IDXD_OP_FLAG_CRC_BYPASS_REFLECT | dml.IDXD_OP_FLAG_CRC_BYPASS_INVERT,
			crc:   0xbb1553bf,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.Equal(t, tc.crc, CRC32C(tc.seed, tc.input, tc.flags))
		})
	}
}

func TestCRCChaining(t *testing.T) {
	first := dml.Execute(New(), dml.NewCRC(crcInput[:10], 0))
	require.NoError(t, first.Err())
	second := dml.Execute(New(), dml.NewCRC(crcInput[10:], first.CRC))
	require.NoError(t, second.Err())
	require.Equal(t, uint32(0x75c96acb), second.CRC)
}

func TestCopyCRC(t *testing.T) {
	dst := make([]byte, len(crcInput))
	res := dml.Execute(New(), dml.NewCopyCRC(crcInput, dst, 0))
	require.NoError(t, res.Err())
	require.Equal(t, uint32(0x75c96acb), res.CRC)
	require.Equal(t, crcInput, dst)
}

func TestMemMove(t *testing.T) {
	src := make([]byte, 4096)
	for i := range src {
		src[i] = byte(i)
	}
	dst := make([]byte, len(src))
	res := dml.Execute(New(), dml.NewMemMove(src, dst))
	require.NoError(t, res.Err())
	require.Equal(t, src, dst)
}

func TestMemMoveOverlapping(t *testing.T) {
	buf := []byte("0123456789")
	res := dml.Execute(New(), dml.NewMemMove(buf[:8], buf[2:]))
	require.NoError(t, res.Err())
	require.Equal(t, "0101234567", string(buf))
}

func TestFill(t *testing.T) {
	dst := make([]byte, 13)
	res := dml.Execute(New(), dml.NewFill(0x0807060504030201, dst))
	require.NoError(t, res.Err())
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 1, 2, 3, 4, 5}, dst)
}

func TestCompare(t *testing.T) {
	a := bytes.Repeat([]byte{7}, 1024)
	b := bytes.Repeat([]byte{7}, 1024)
	p := New()

	res := dml.Execute(p, dml.NewCompare(a, b))
	require.NoError(t, res.Err())
	require.Equal(t, dml.Equal, res.Outcome)
	require.Zero(t, res.MismatchOffset)

	b[517] = 8
	res = dml.Execute(p, dml.NewCompare(a, b))
	require.NoError(t, res.Err())
	require.Equal(t, dml.NotEqual, res.Outcome)
	require.Equal(t, uint32(517), res.MismatchOffset)

	res = dml.Execute(p, dml.NewCompare(a, b).ExpectEqual())
	require.Equal(t, dml.StatusFalsePredicate, res.Status)
	require.Equal(t, dml.NotEqual, res.Outcome)

	res = dml.Execute(p, dml.NewCompare(a, b).ExpectNotEqual())
	require.Equal(t, dml.StatusOK, res.Status)

	res = dml.Execute(p, dml.NewCompare(a, a))
	require.Equal(t, dml.StatusOK, res.Status)
	require.Equal(t, dml.Equal, res.Outcome)
}

func TestComparePattern(t *testing.T) {
	src := make([]byte, 64)
	FillPattern(src, 0xdeadbeefcafebabe)
	res := dml.Execute(New(), dml.NewComparePattern(src, 0xdeadbeefcafebabe))
	require.NoError(t, res.Err())
	require.Equal(t, dml.Equal, res.Outcome)

	src[42] ^= 1
	res = dml.Execute(New(), dml.NewComparePattern(src, 0xdeadbeefcafebabe).ExpectEqual())
	require.Equal(t, dml.StatusFalsePredicate, res.Status)
	require.Equal(t, uint32(42), res.MismatchOffset)
}

func TestDeltaRoundTrip(t *testing.T) {
	original := make([]byte, 512)
	for i := range original {
		original[i] = byte(i * 3)
	}
	modified := bytes.Clone(original)
	modified[0] ^= 0xff
	modified[100] ^= 0xff
	modified[511] ^= 0xff
	delta := make([]byte, 10*dml.DeltaRecordEntrySize)

	p := New()
	res := dml.Execute(p, dml.NewCreateDelta(original, modified, delta))
	require.NoError(t, res.Err())
	require.Equal(t, dml.NotEqual, res.Outcome)
	require.Equal(t, uint32(3*dml.DeltaRecordEntrySize), res.RecordSize)
	require.Equal(t, uint16(100/8), binary.LittleEndian.Uint16(delta[dml.DeltaRecordEntrySize:]))

	target := bytes.Clone(original)
	applied := dml.Execute(p, dml.NewApplyDelta(delta[:res.RecordSize], target))
	require.NoError(t, applied.Err())
	require.Equal(t, modified, target)
}

func TestDeltaEqual(t *testing.T) {
	src := make([]byte, 64)
	res := dml.Execute(New(), dml.NewCreateDelta(src, bytes.Clone(src), make([]byte, 10)).ExpectEqual())
	require.NoError(t, res.Err())
	require.Equal(t, dml.Equal, res.Outcome)
	require.Zero(t, res.RecordSize)
}

func TestDeltaOverflow(t *testing.T) {
	original := make([]byte, 64)
	modified := bytes.Repeat([]byte{1}, 64)
	delta := make([]byte, 3*dml.DeltaRecordEntrySize)
	res := dml.Execute(New(), dml.NewCreateDelta(original, modified, delta))
	require.Equal(t, dml.StatusOK, res.Status)
	require.Equal(t, dml.Overflow, res.Outcome)
	require.Equal(t, uint32(len(delta)), res.RecordSize)

	res = dml.Execute(New(), dml.NewCreateDelta(original, modified, delta).ExpectEqual())
	require.Equal(t, dml.StatusFalsePredicate, res.Status)
}

func TestApplyDeltaOutOfRange(t *testing.T) {
	delta := make([]byte, dml.DeltaRecordEntrySize)
	binary.LittleEndian.PutUint16(delta, 8)
	res := dml.Execute(New(), dml.NewApplyDelta(delta, make([]byte, 64)))
	require.Equal(t, dml.StatusExecutionFailed, res.Status)
	require.Equal(t, dml.DSA_COMP_DR_OFFSET_ERANGE, res.Raw)
}

func TestApplyDeltaNotIncreasing(t *testing.T) {
	delta := make([]byte, 2*dml.DeltaRecordEntrySize)
	binary.LittleEndian.PutUint16(delta, 2)
	binary.LittleEndian.PutUint16(delta[dml.DeltaRecordEntrySize:], 1)
	res := dml.Execute(New(), dml.NewApplyDelta(delta, make([]byte, 64)))
	require.Equal(t, dml.DSA_COMP_DR_OFFSET_NOINC, res.Raw)
}

func TestDualcast(t *testing.T) {
	src := bytes.Repeat([]byte("dualcast"), 64)
	region := arena.AllocAligned(2*4096, 4096)
	dst1 := region[:len(src)]
	dst2 := region[4096 : 4096+len(src)]
	res := dml.Execute(New(), dml.NewDualcast(src, dst1, dst2))
	require.NoError(t, res.Err())
	require.Equal(t, src, dst1)
	require.Equal(t, src, dst2)

	res = dml.Execute(New(), dml.NewDualcast(src, region[:len(src)], region[4097:4097+len(src)]))
	require.Equal(t, dml.StatusDualcastBadPadding, res.Status)
}

func TestCRC16T10(t *testing.T) {
	require.Equal(t, uint16(0xd0db), CRC16T10(0, []byte("123456789")))
	require.Equal(t, uint16(0), CRC16T10(0, make([]byte, 512)))
	require.Equal(t, uint16(0x9ec6), CRC16T10(0, bytes.Repeat([]byte{0xa5}, 512)))
}

func TestDIFRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0xa5}, 4*512)
	protected := make([]byte, 4*520)
	tags := dml.DIFTags{RefTag: 100, AppTag: 0xbeef}
	p := New()

	ins := dml.Execute(p, dml.NewDIFInsert(data, protected, dml.DIFBlock512, tags))
	require.NoError(t, ins.Err())
	require.Equal(t, uint16(0x9ec6), binary.BigEndian.Uint16(protected[512:]))
	require.Equal(t, uint16(0xbeef), binary.BigEndian.Uint16(protected[514:]))
	require.Equal(t, uint32(101), binary.BigEndian.Uint32(protected[520+516:]))
	require.Equal(t, uint32(104), ins.Tags.RefTag)

	check := dml.Execute(p, dml.NewDIFCheck(protected, dml.DIFBlock512, tags))
	require.NoError(t, check.Err())
	require.Zero(t, check.DIFStatus)

	stripped := make([]byte, len(data))
	strip := dml.Execute(p, dml.NewDIFStrip(protected, stripped, dml.DIFBlock512, tags))
	require.NoError(t, strip.Err())
	require.Equal(t, data, stripped)

	updated := make([]byte, len(protected))
	newTags := dml.DIFTags{RefTag: 7, AppTag: 0x1234}
	upd := dml.Execute(p, dml.NewDIFUpdate(protected, updated, dml.DIFBlock512, dml.DIFBlock512, tags, newTags))
	require.NoError(t, upd.Err())
	check = dml.Execute(p, dml.NewDIFCheck(updated, dml.DIFBlock512, newTags))
	require.NoError(t, check.Err())
}

func TestDIFCheckMismatch(t *testing.T) {
	data := make([]byte, 2*512)
	protected := make([]byte, 2*520)
	tags := dml.DIFTags{RefTag: 1, AppTag: 0x00ff}
	p := New()
	require.NoError(t, dml.Execute(p, dml.NewDIFInsert(data, protected, dml.DIFBlock512, tags)).Err())

	protected[520+3] ^= 1
	res := dml.Execute(p, dml.NewDIFCheck(protected, dml.DIFBlock512, tags))
	require.Equal(t, dml.StatusExecutionFailed, res.Status)
	require.Equal(t, dml.DSA_COMP_DIF_ERR, res.Raw)
	require.Equal(t, dml.DIFGuardMismatch, res.DIFStatus)
	require.Equal(t, uint32(520), res.BytesCompleted)

	res = dml.Execute(p, dml.NewDIFCheck(protected, dml.DIFBlock512, tags).Skipping(dml.DIFSkipGuard))
	require.NoError(t, res.Err())

	wrong := dml.DIFTags{RefTag: 5, AppTag: 0x00ff}
	res = dml.Execute(p, dml.NewDIFCheck(protected, dml.DIFBlock512, wrong).Skipping(dml.DIFSkipGuard))
	require.Equal(t, dml.DIFRefTagMismatch, res.DIFStatus)
	require.Equal(t, uint32(1), res.Tags.RefTag)

	masked := dml.DIFTags{RefTag: 1, AppTag: 0x0000, AppTagMask: 0x00ff}
	res = dml.Execute(p, dml.NewDIFCheck(protected, dml.DIFBlock512, masked).Skipping(dml.DIFSkipGuard))
	require.NoError(t, res.Err())
}

func TestDIFFixedRefTag(t *testing.T) {
	data := make([]byte, 3*512)
	protected := make([]byte, 3*520)
	tags := dml.DIFTags{RefTag: 9}
	flags := dml.DIFBlock512 | dml.DIFRefTagFixed
	require.NoError(t, dml.Execute(New(), dml.NewDIFInsert(data, protected, flags, tags)).Err())
	for i := 0; i < 3; i++ {
		require.Equal(t, uint32(9), binary.BigEndian.Uint32(protected[i*520+516:]))
	}
	require.NoError(t, dml.Execute(New(), dml.NewDIFCheck(protected, flags, tags)).Err())
}

func TestCacheFlushAndNop(t *testing.T) {
	p := New()
	require.NoError(t, dml.Execute(p, dml.NewCacheFlush(make([]byte, 256))).Err())
	require.NoError(t, dml.Execute(p, dml.NewNop()).Err())
	require.NoError(t, dml.Execute(p, dml.NewDrain()).Err())
}

func TestBatchFillDrainMove(t *testing.T) {
	a := make([]byte, 256)
	b := make([]byte, 256)
	seq := dml.NewSequence(4)
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewFill(0x1122334455667788, a)))
	require.Equal(t, dml.StatusOK, seq.Barrier())
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewMemMove(a, b)))

	res := dml.Execute(New(), dml.NewBatch(seq))
	require.NoError(t, res.Err())
	require.Equal(t, uint32(3), res.Completed)
	expect := make([]byte, 256)
	FillPattern(expect, 0x1122334455667788)
	require.Equal(t, expect, b)
	for i := 0; i < seq.Len(); i++ {
		require.Equal(t, dml.StatusOK, seq.Result(i).Status)
	}
}

func TestBatchPartialFailure(t *testing.T) {
	delta := make([]byte, dml.DeltaRecordEntrySize)
	binary.LittleEndian.PutUint16(delta, 100)
	dst := make([]byte, 64)
	seq := dml.NewSequence(3)
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewFill(1, dst)))
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewApplyDelta(delta, dst)))
	require.Equal(t, dml.StatusOK, seq.Add(dml.NewFill(2, dst)))

	res := dml.Execute(New(), dml.NewBatch(seq))
	require.Equal(t, dml.StatusExecutionFailed, res.Status)
	require.Equal(t, dml.DSA_COMP_BATCH_FAIL, res.Raw)
	require.Equal(t, uint32(1), res.Completed)
	require.Equal(t, dml.StatusOK, seq.Result(0).Status)
	require.Equal(t, dml.StatusExecutionFailed, seq.Result(1).Status)
	require.Equal(t, dml.StatusError, seq.Result(2).Status)
}

func TestUnknownOpcode(t *testing.T) {
	var d dml.Descriptor
	var r dml.CompletionRecord
	d.SetOpcode(0x3f)
	ExecuteInto(&d, &r)
	require.Equal(t, dml.DSA_COMP_BAD_OPCODE, r.RawStatus())
	require.Equal(t, dml.StatusUnsupportedOperation, dml.Decode(&r).Status)
}

func TestPathRejectsMissingRecord(t *testing.T) {
	var d dml.Descriptor
	dml.PrepNop(&d, 0)
	require.Equal(t, dml.StatusNullptrError, New().Validate(&d))
}

func TestMismatch(t *testing.T) {
	a := make([]byte, 1000)
	b := make([]byte, 1000)
	require.Equal(t, -1, Mismatch(a, b))
	b[999] = 1
	require.Equal(t, 999, Mismatch(a, b))
	b[3] = 1
	require.Equal(t, 3, Mismatch(a, b))
	require.Equal(t, 10, Mismatch(a[:10], a[:20]))
}

func BenchmarkCRC(b *testing.B) {
	buf := make([]byte, 4096)
	b.SetBytes(int64(len(buf)))
	for i := 0; i < b.N; i++ {
		_ = CRC32C(0, buf, 0)
	}
}

func BenchmarkMemMove(b *testing.B) {
	src := make([]byte, 64<<10)
	dst := make([]byte, len(src))
	p := New()
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dml.Execute(p, dml.NewMemMove(src, dst))
	}
}

func growStack(n int) byte {
	var pad [512]byte
	pad[n%len(pad)] = byte(n)
	if n == 0 {
		return pad[0]
	}
	return growStack(n-1) + pad[(n+1)%len(pad)]
}

func TestFillStackBuffer(t *testing.T) {
	var buf [64]byte
	var d dml.Descriptor
	var r dml.CompletionRecord
	dml.PrepFill(&d, 0x0101010101010101, buf[:], 0)
	growStack(1 << 10)
	ExecuteInto(&d, &r)
	require.Equal(t, dml.DSA_COMP_SUCCESS, r.RawStatus())
	require.Equal(t, bytes.Repeat([]byte{1}, len(buf)), buf[:])
}
