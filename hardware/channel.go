// Package hardware submits descriptors to an accelerator work queue through
// a Channel and waits on their completion records.
package hardware

import (
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/dshulyak/dml"
)

// Channel is a portal to a work queue. Submit copies the descriptor; the
// device later writes the completion record at its completion address.
type Channel interface {
	// Submit returns StatusOK, StatusQueueBusy when the queue is full, or
	// StatusError when no device serves the node.
	Submit(d *dml.Descriptor, numa int) dml.Status
	Capabilities() Capabilities
}

// OpcodeSet is a bitmask of supported opcodes.
type OpcodeSet uint64

// Opcodes builds a set from the given opcodes.
func Opcodes(ops ...dml.Opcode) OpcodeSet {
	var s OpcodeSet
	for _, op := range ops {
		s |= 1 << op
	}
	return s
}

// AllOpcodes contains every defined operation.
var AllOpcodes = Opcodes(
	dml.DSA_OPCODE_NOOP,
	dml.DSA_OPCODE_BATCH,
	dml.DSA_OPCODE_DRAIN,
	dml.DSA_OPCODE_MEMMOVE,
	dml.DSA_OPCODE_MEMFILL,
	dml.DSA_OPCODE_COMPARE,
	dml.DSA_OPCODE_COMPVAL,
	dml.DSA_OPCODE_CR_DELTA,
	dml.DSA_OPCODE_AP_DELTA,
	dml.DSA_OPCODE_DUALCAST,
	dml.DSA_OPCODE_CRCGEN,
	dml.DSA_OPCODE_COPY_CRC,
	dml.DSA_OPCODE_DIF_CHECK,
	dml.DSA_OPCODE_DIF_INS,
	dml.DSA_OPCODE_DIF_STRP,
	dml.DSA_OPCODE_DIF_UPDT,
	dml.DSA_OPCODE_CFLUSH,
)

func (s OpcodeSet) Has(op dml.Opcode) bool {
	return op < 64 && s&(1<<op) != 0
}

// Without removes ops from the set.
func (s OpcodeSet) Without(ops ...dml.Opcode) OpcodeSet {
	return s &^ Opcodes(ops...)
}

// Capabilities describe what a work queue accepts.
type Capabilities struct {
	MaxTransferSize uint32
	MaxBatchSize    uint32
	Opcodes         OpcodeSet
}

// Features are the host instructions relevant to descriptor submission.
type Features struct {
	// MOVDIR64B writes a descriptor to a dedicated work queue portal.
	MOVDIR64B bool
	// ENQCMD submits to shared work queues and reports a full queue.
	ENQCMD bool
	// WAITPKG provides user level monitor and wait.
	WAITPKG bool
}

// Host probes the current CPU.
func Host() Features {
	return Features{
		MOVDIR64B: cpuid.CPU.Supports(cpuid.MOVDIR64B),
		ENQCMD:    cpuid.CPU.Supports(cpuid.ENQCMD),
		WAITPKG:   cpuid.CPU.Supports(cpuid.WAITPKG),
	}
}

// Portal reports whether descriptors can be written to a device portal.
func (f Features) Portal() bool {
	return f.MOVDIR64B || f.ENQCMD
}

func (f Features) String() string {
	var names []string
	if f.MOVDIR64B {
		names = append(names, "movdir64b")
	}
	if f.ENQCMD {
		names = append(names, "enqcmd")
	}
	if f.WAITPKG {
		names = append(names, "waitpkg")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
