package software

import (
	"encoding/binary"

	"github.com/klauspost/crc32"

	"github.com/dshulyak/dml"
)

// castagnoliPoly is the CRC-32C polynomial in normal bit order.
const castagnoliPoly = 0x1EDC6F41

var (
	castagnoli = crc32.MakeTable(crc32.Castagnoli)
	msbTable   = makeMSBTable(castagnoliPoly)
)

func makeMSBTable(poly uint32) *[256]uint32 {
	t := new([256]uint32)
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&(1<<31) != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// CRC32C computes CRC-32C over p the way the crc operation does for the
// given descriptor flags. With no flags set it matches crc32.Update with
// the Castagnoli table.
func CRC32C(seed uint32, p []byte, flags uint32) uint32 {
	invert := flags&dml.IDXD_OP_FLAG_CRC_BYPASS_INVERT == 0
	if flags&dml.IDXD_OP_FLAG_CRC_BYPASS_REFLECT == 0 {
		if invert {
			return crc32.Update(seed, castagnoli, p)
		}
		return ^crc32.Update(^seed, castagnoli, p)
	}
	crc := seed
	if invert {
		crc = ^crc
	}
	for _, b := range p {
		crc = crc<<8 ^ msbTable[byte(crc>>24)^b]
	}
	if invert {
		crc = ^crc
	}
	return crc
}

func seedOf(d *dml.Descriptor) uint32 {
	if d.HasFlags(dml.IDXD_OP_FLAG_CRC_RD_SEED) {
		return binary.LittleEndian.Uint32(dml.Bytes(d.CRCSeedAddress(), 4))
	}
	return d.CRCSeed()
}

func crcGen(d *dml.Descriptor, r *dml.CompletionRecord) uint8 {
	r.SetCRC(CRC32C(seedOf(d), dml.Bytes(d.Src(), d.TransferSize()), d.Flags()))
	return dml.DSA_COMP_SUCCESS
}

func copyCRC(d *dml.Descriptor, r *dml.CompletionRecord) uint8 {
	n := d.TransferSize()
	src := dml.Bytes(d.Src(), n)
	copy(dml.Bytes(d.Dst(), n), src)
	r.SetCRC(CRC32C(seedOf(d), src, d.Flags()))
	return dml.DSA_COMP_SUCCESS
}
