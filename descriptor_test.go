package dml

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptorLayout(t *testing.T) {
	src := make([]byte, 4096)
	dst := make([]byte, 4096)
	var d Descriptor
	PrepMemMove(&d, src, dst, IDXD_OP_FLAG_BOF)
	d.SetCompletionAddress(0x1000)
	d.AddFlags(IDXD_OP_FLAG_CRAV | IDXD_OP_FLAG_RCR)

	require.Equal(t, uint8(DSA_OPCODE_MEMMOVE), d[7])
	require.Equal(t, uint32(IDXD_OP_FLAG_BOF|IDXD_OP_FLAG_CRAV|IDXD_OP_FLAG_RCR),
		binary.LittleEndian.Uint32(d[4:8])&0xffffff)
	require.Equal(t, uint64(0x1000), binary.LittleEndian.Uint64(d[8:]))
	require.Equal(t, AddressOf(src), binary.LittleEndian.Uint64(d[16:]))
	require.Equal(t, AddressOf(dst), binary.LittleEndian.Uint64(d[24:]))
	require.Equal(t, uint32(4096), binary.LittleEndian.Uint32(d[32:]))

	d.SetOpcode(DSA_OPCODE_CRCGEN)
	require.Equal(t, DSA_OPCODE_CRCGEN, d.Opcode())
	require.True(t, d.HasFlags(IDXD_OP_FLAG_BOF|IDXD_OP_FLAG_RCR))
}

func TestDescriptorOperationFields(t *testing.T) {
	var d Descriptor
	d.SetCRCSeed(0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(d[40:]))
	d.SetCRCSeedAddress(0x2040)
	require.Equal(t, uint64(0x2040), binary.LittleEndian.Uint64(d[48:]))

	d.Reset()
	d.SetDeltaAddress(0x3000)
	d.SetMaxDeltaSize(80)
	d.SetExpectedResultMask(0x3)
	require.Equal(t, uint64(0x3000), d.DeltaAddress())
	require.Equal(t, uint32(80), binary.LittleEndian.Uint32(d[48:]))
	require.Equal(t, uint8(0x3), d[56])

	d.Reset()
	tags := DIFTags{RefTag: 7, AppTagMask: 0xff00, AppTag: 0x1234}
	d.SetSourceDIF(DIFBlock4096, DIFSkipGuard, tags)
	flags, skip, got := d.SourceDIF()
	require.Equal(t, DIFBlock4096, flags)
	require.Equal(t, DIFSkipGuard, skip)
	require.Equal(t, tags, got)
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(d[48:]))
}

func TestRecordReservedBits(t *testing.T) {
	var r CompletionRecord
	require.False(t, r.Done())

	r.SetBytesCompleted(100)
	r.SetFaultAddress(0xabc)
	r.Complete(0x80|DSA_COMP_SUCCESS, ResultNotEqual)
	require.True(t, r.Done())
	require.Equal(t, DSA_COMP_SUCCESS, r.RawStatus())
	require.Equal(t, uint8(ResultNotEqual), r.Result())
	require.Equal(t, uint8(0x81), r[0])

	res := Decode(&r)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, uint32(100), res.BytesCompleted)
	require.Equal(t, uint64(0xabc), res.FaultAddress)

	r.Reset()
	require.False(t, r.Done())
	require.Equal(t, CompletionRecord{}, r)

	// the status write bit alone is not a terminal status
	r.Complete(0x80, 0)
	require.False(t, r.Done())
}

// growStack forces the goroutine stack to be copied.
func growStack(n int) byte {
	var pad [512]byte
	pad[n%len(pad)] = byte(n)
	if n == 0 {
		return pad[0]
	}
	return growStack(n-1) + pad[(n+1)%len(pad)]
}

func TestRecordAt(t *testing.T) {
	buf := make([]byte, 64)
	r := RecordAt(AddressOf(buf))
	growStack(1 << 10)
	r.Complete(DSA_COMP_PAGE_FAULT_NOBOF, 0)
	require.Equal(t, DSA_COMP_PAGE_FAULT_NOBOF, buf[0])
	require.Equal(t, AddressOf(buf), r.Address())
}

func TestAddressSurvivesStackGrowth(t *testing.T) {
	var buf [64]byte
	var d Descriptor
	PrepFill(&d, 0x0101010101010101, buf[:], 0)
	d.SetCompletionAddress(d.Address())
	growStack(1 << 10)
	require.Equal(t, AddressOf(buf[:]), d.Dst())
	require.Equal(t, d.Address(), d.CompletionAddress())

	copy(Bytes(d.Dst(), d.TransferSize()), []byte{1, 2, 3})
	require.Equal(t, []byte{1, 2, 3}, buf[:3])
}

func TestAddressOf(t *testing.T) {
	require.Zero(t, AddressOf(nil))
	require.NotZero(t, AddressOf([]byte{}))
	buf := make([]byte, 16)
	require.Equal(t, AddressOf(buf)+4, AddressOf(buf[4:]))
	require.Equal(t, buf[4:8], Bytes(AddressOf(buf)+4, 4))
	require.Nil(t, Bytes(0, 4))
}

func TestOverlaps(t *testing.T) {
	require.True(t, overlaps(0, 10, 9, 1))
	require.False(t, overlaps(0, 10, 10, 1))
	require.False(t, overlaps(0, 0, 0, 10))
	require.True(t, overlaps(5, 1, 0, 10))
}
