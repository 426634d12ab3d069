package dml

// DIFFlags describe the protection information layout of one buffer.
type DIFFlags uint8

const (
	DIFBlock512  DIFFlags = 0
	DIFBlock520  DIFFlags = 1
	DIFBlock4096 DIFFlags = 2
	DIFBlock4104 DIFFlags = 3

	difBlockMask DIFFlags = 0x3

	// DIFRefTagFixed keeps the reference tag constant instead of incrementing it per block.
	DIFRefTagFixed DIFFlags = 1 << 2
)

// DIFSize is the size of the protection information appended to every block.
const DIFSize = 8

var difBlockSizes = [...]uint32{512, 520, 4096, 4104}

// BlockSize is the data block size without protection information.
func (f DIFFlags) BlockSize() uint32 {
	return difBlockSizes[f&difBlockMask]
}

// DIFOpFlags disable individual checks.
type DIFOpFlags uint8

const (
	DIFSkipGuard DIFOpFlags = 1 << iota
	DIFSkipAppTag
	DIFSkipRefTag
)

// DIFTags are the application and reference tags of a protected block.
// Bits set in AppTagMask are ignored when checking the application tag.
type DIFTags struct {
	RefTag     uint32
	AppTagMask uint16
	AppTag     uint16
}

// DIF status bits reported in the result byte.
const (
	DIFGuardMismatch  uint8 = 1 << 0
	DIFAppTagMismatch uint8 = 1 << 1
	DIFRefTagMismatch uint8 = 1 << 2
)
