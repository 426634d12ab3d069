package software

import (
	"encoding/binary"

	"github.com/dshulyak/dml"
)

// t10Poly is the T10 DIF guard polynomial.
const t10Poly = 0x8BB7

var t10 = makeT10Table()

func makeT10Table() *[256]uint16 {
	t := new([256]uint16)
	for i := range t {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&(1<<15) != 0 {
				crc = crc<<1 ^ t10Poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// CRC16T10 updates a T10 DIF guard with p.
func CRC16T10(crc uint16, p []byte) uint16 {
	for _, b := range p {
		crc = crc<<8 ^ t10[byte(crc>>8)^b]
	}
	return crc
}

// PutProtection writes the 8 bytes of protection information for data.
func PutProtection(pi []byte, data []byte, appTag uint16, refTag uint32) {
	binary.BigEndian.PutUint16(pi[0:], CRC16T10(0, data))
	binary.BigEndian.PutUint16(pi[2:], appTag)
	binary.BigEndian.PutUint32(pi[4:], refTag)
}

// refTag is the reference tag of block i.
func refTag(flags dml.DIFFlags, tags dml.DIFTags, i int) uint32 {
	if flags&dml.DIFRefTagFixed != 0 {
		return tags.RefTag
	}
	return tags.RefTag + uint32(i)
}

// verify checks every protected block of src. On failure the offset of the
// failing block and its tags are stored in r.
func verify(src []byte, flags dml.DIFFlags, skip dml.DIFOpFlags, tags dml.DIFTags, r *dml.CompletionRecord) (uint8, uint8) {
	bs := int(flags.BlockSize())
	stride := bs + dml.DIFSize
	blocks := len(src) / stride
	for i := 0; i < blocks; i++ {
		blk := src[i*stride : (i+1)*stride]
		pi := blk[bs:]
		guard := binary.BigEndian.Uint16(pi[0:])
		app := binary.BigEndian.Uint16(pi[2:])
		ref := binary.BigEndian.Uint32(pi[4:])

		var bits uint8
		if skip&dml.DIFSkipGuard == 0 && CRC16T10(0, blk[:bs]) != guard {
			bits |= dml.DIFGuardMismatch
		}
		if skip&dml.DIFSkipAppTag == 0 && app&^tags.AppTagMask != tags.AppTag&^tags.AppTagMask {
			bits |= dml.DIFAppTagMismatch
		}
		if skip&dml.DIFSkipRefTag == 0 && ref != refTag(flags, tags, i) {
			bits |= dml.DIFRefTagMismatch
		}
		if bits != 0 {
			r.SetBytesCompleted(uint32(i * stride))
			r.SetDIFTags(dml.DIFTags{RefTag: ref, AppTagMask: tags.AppTagMask, AppTag: app})
			return dml.DSA_COMP_DIF_ERR, bits
		}
	}
	next := tags
	next.RefTag = refTag(flags, tags, blocks)
	r.SetDIFTags(next)
	return dml.DSA_COMP_SUCCESS, 0
}

func difCheck(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	flags, skip, tags := d.SourceDIF()
	n := d.TransferSize()
	if n%(flags.BlockSize()+dml.DIFSize) != 0 {
		return dml.DSA_COMP_XFER_ERANGE, 0
	}
	return verify(dml.Bytes(d.Src(), n), flags, skip, tags, r)
}

func difInsert(d *dml.Descriptor, r *dml.CompletionRecord) uint8 {
	flags, tags := d.DestDIF()
	bs := int(flags.BlockSize())
	n := int(d.TransferSize())
	if n%bs != 0 {
		return dml.DSA_COMP_XFER_ERANGE
	}
	blocks := n / bs
	src := dml.Bytes(d.Src(), uint32(n))
	dst := dml.Bytes(d.Dst(), uint32(blocks*(bs+dml.DIFSize)))
	for i := 0; i < blocks; i++ {
		data := src[i*bs : (i+1)*bs]
		out := dst[i*(bs+dml.DIFSize):]
		copy(out, data)
		PutProtection(out[bs:], data, tags.AppTag, refTag(flags, tags, i))
	}
	next := tags
	next.RefTag = refTag(flags, tags, blocks)
	r.SetDIFTags(next)
	return dml.DSA_COMP_SUCCESS
}

func difStrip(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	flags, skip, tags := d.SourceDIF()
	bs := int(flags.BlockSize())
	stride := bs + dml.DIFSize
	n := int(d.TransferSize())
	if n%stride != 0 {
		return dml.DSA_COMP_XFER_ERANGE, 0
	}
	src := dml.Bytes(d.Src(), uint32(n))
	if status, result := verify(src, flags, skip, tags, r); status != dml.DSA_COMP_SUCCESS {
		return status, result
	}
	blocks := n / stride
	dst := dml.Bytes(d.Dst(), uint32(blocks*bs))
	for i := 0; i < blocks; i++ {
		copy(dst[i*bs:(i+1)*bs], src[i*stride:i*stride+bs])
	}
	return dml.DSA_COMP_SUCCESS, 0
}

func difUpdate(d *dml.Descriptor, r *dml.CompletionRecord) (uint8, uint8) {
	srcFlags, skip, srcTags := d.SourceDIF()
	dstFlags, dstTags := d.DestDIF()
	bs := int(srcFlags.BlockSize())
	stride := bs + dml.DIFSize
	n := int(d.TransferSize())
	if n%stride != 0 || dstFlags.BlockSize() != srcFlags.BlockSize() {
		return dml.DSA_COMP_XFER_ERANGE, 0
	}
	src := dml.Bytes(d.Src(), uint32(n))
	if status, result := verify(src, srcFlags, skip, srcTags, r); status != dml.DSA_COMP_SUCCESS {
		return status, result
	}
	dst := dml.Bytes(d.Dst(), uint32(n))
	blocks := n / stride
	for i := 0; i < blocks; i++ {
		data := src[i*stride : i*stride+bs]
		out := dst[i*stride : (i+1)*stride]
		copy(out, data)
		PutProtection(out[bs:], data, dstTags.AppTag, refTag(dstFlags, dstTags, i))
	}
	next := dstTags
	next.RefTag = refTag(dstFlags, dstTags, blocks)
	r.SetDIFTags(next)
	return dml.DSA_COMP_SUCCESS, 0
}
