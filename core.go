package dml

import "fmt"

// Opcode selects the operation a descriptor describes.
type Opcode uint8

// operations
const (
	DSA_OPCODE_NOOP      Opcode = 0x00
	DSA_OPCODE_BATCH     Opcode = 0x01
	DSA_OPCODE_DRAIN     Opcode = 0x02
	DSA_OPCODE_MEMMOVE   Opcode = 0x03
	DSA_OPCODE_MEMFILL   Opcode = 0x04
	DSA_OPCODE_COMPARE   Opcode = 0x05
	DSA_OPCODE_COMPVAL   Opcode = 0x06
	DSA_OPCODE_CR_DELTA  Opcode = 0x07
	DSA_OPCODE_AP_DELTA  Opcode = 0x08
	DSA_OPCODE_DUALCAST  Opcode = 0x09
	DSA_OPCODE_CRCGEN    Opcode = 0x10
	DSA_OPCODE_COPY_CRC  Opcode = 0x11
	DSA_OPCODE_DIF_CHECK Opcode = 0x12
	DSA_OPCODE_DIF_INS   Opcode = 0x13
	DSA_OPCODE_DIF_STRP  Opcode = 0x14
	DSA_OPCODE_DIF_UPDT  Opcode = 0x15
	DSA_OPCODE_CFLUSH    Opcode = 0x20
)

var opcodeNames = map[Opcode]string{
	DSA_OPCODE_NOOP:      "nop",
	DSA_OPCODE_BATCH:     "batch",
	DSA_OPCODE_DRAIN:     "drain",
	DSA_OPCODE_MEMMOVE:   "mem_move",
	DSA_OPCODE_MEMFILL:   "fill",
	DSA_OPCODE_COMPARE:   "compare",
	DSA_OPCODE_COMPVAL:   "compare_pattern",
	DSA_OPCODE_CR_DELTA:  "create_delta",
	DSA_OPCODE_AP_DELTA:  "apply_delta",
	DSA_OPCODE_DUALCAST:  "dualcast",
	DSA_OPCODE_CRCGEN:    "crc",
	DSA_OPCODE_COPY_CRC:  "copy_crc",
	DSA_OPCODE_DIF_CHECK: "dif_check",
	DSA_OPCODE_DIF_INS:   "dif_insert",
	DSA_OPCODE_DIF_STRP:  "dif_strip",
	DSA_OPCODE_DIF_UPDT:  "dif_update",
	DSA_OPCODE_CFLUSH:    "cache_flush",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%#x)", uint8(o))
}

// Known reports whether the opcode is defined.
func (o Opcode) Known() bool {
	_, ok := opcodeNames[o]
	return ok
}

// descriptor flags
const (
	IDXD_OP_FLAG_FENCE     uint32 = 1 << 0
	IDXD_OP_FLAG_BOF       uint32 = 1 << 1
	IDXD_OP_FLAG_CRAV      uint32 = 1 << 2
	IDXD_OP_FLAG_RCR       uint32 = 1 << 3
	IDXD_OP_FLAG_RCI       uint32 = 1 << 4
	IDXD_OP_FLAG_CRSTS     uint32 = 1 << 5
	IDXD_OP_FLAG_CR        uint32 = 1 << 7
	IDXD_OP_FLAG_CC        uint32 = 1 << 8
	IDXD_OP_FLAG_ADDR1_TCS uint32 = 1 << 9
	IDXD_OP_FLAG_ADDR2_TCS uint32 = 1 << 10
	IDXD_OP_FLAG_ADDR3_TCS uint32 = 1 << 11
	IDXD_OP_FLAG_CR_TCS    uint32 = 1 << 12
	IDXD_OP_FLAG_STORD     uint32 = 1 << 13
	IDXD_OP_FLAG_DRDBK     uint32 = 1 << 14
	IDXD_OP_FLAG_DSTS      uint32 = 1 << 15
)

// operation specific flags, bits 16-23
const (
	IDXD_OP_FLAG_CRC_RD_SEED        uint32 = 1 << 16
	IDXD_OP_FLAG_CRC_BYPASS_REFLECT uint32 = 1 << 17
	IDXD_OP_FLAG_CRC_BYPASS_INVERT  uint32 = 1 << 18
)

// flagsMask covers the 24 bits of the flags field.
const flagsMask uint32 = 1<<24 - 1

// completion record statuses
const (
	DSA_COMP_NONE               uint8 = 0x00
	DSA_COMP_SUCCESS            uint8 = 0x01
	DSA_COMP_SUCCESS_PRED       uint8 = 0x02
	DSA_COMP_PAGE_FAULT_NOBOF   uint8 = 0x03
	DSA_COMP_PAGE_FAULT_IR      uint8 = 0x04
	DSA_COMP_BATCH_FAIL         uint8 = 0x05
	DSA_COMP_BATCH_PAGE_FAULT   uint8 = 0x06
	DSA_COMP_DR_OFFSET_NOINC    uint8 = 0x07
	DSA_COMP_DR_OFFSET_ERANGE   uint8 = 0x08
	DSA_COMP_DIF_ERR            uint8 = 0x09
	DSA_COMP_BAD_OPCODE         uint8 = 0x10
	DSA_COMP_INVALID_FLAGS      uint8 = 0x11
	DSA_COMP_NOZERO_RESERVE     uint8 = 0x12
	DSA_COMP_XFER_ERANGE        uint8 = 0x13
	DSA_COMP_DESC_CNT_ERANGE    uint8 = 0x14
	DSA_COMP_DR_ERANGE          uint8 = 0x15
	DSA_COMP_OVERLAP_BUFFERS    uint8 = 0x16
	DSA_COMP_DCAST_ERR          uint8 = 0x17
	DSA_COMP_DESCLIST_ALIGN     uint8 = 0x18
	DSA_COMP_INT_HANDLE_INVAL   uint8 = 0x19
	DSA_COMP_CRA_XLAT           uint8 = 0x1a
	DSA_COMP_CRA_ALIGN          uint8 = 0x1b
	DSA_COMP_ADDR_ALIGN         uint8 = 0x1c
	DSA_COMP_PRIV_BAD           uint8 = 0x1d
	DSA_COMP_TRAFFIC_CLASS_CONF uint8 = 0x1e
	DSA_COMP_PFAULT_RDBA        uint8 = 0x1f
	DSA_COMP_HW_ERR1            uint8 = 0x20
	DSA_COMP_HW_ERR_DRB         uint8 = 0x21
	DSA_COMP_TRANSLATION_FAIL   uint8 = 0x22

	DSA_COMP_STATUS_MASK  uint8 = 0x3f
	DSA_COMP_STATUS_WRITE uint8 = 0x80
)

// comparison and delta outcomes stored in the result byte
const (
	ResultEqual    uint8 = 0
	ResultNotEqual uint8 = 1
	ResultOverflow uint8 = 2
)

// delta record encoding
const (
	// DeltaRecordEntrySize is a 2-byte block offset followed by 8 bytes of new data.
	DeltaRecordEntrySize = 10
	// DeltaBlockSize is the comparison granularity of create_delta.
	DeltaBlockSize = 8
	// MaxDeltaSourceSize is the largest region a 16-bit block offset can address.
	MaxDeltaSourceSize = DeltaBlockSize << 16
	// MaxDeltaRecordSize holds one entry for every block of the largest source.
	MaxDeltaRecordSize = (MaxDeltaSourceSize / DeltaBlockSize) * DeltaRecordEntrySize
)

// DualcastPaddingMask selects the address bits both dualcast destinations must share.
const DualcastPaddingMask = 0xfff
