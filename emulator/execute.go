package emulator

import (
	"github.com/dshulyak/dml"
	"github.com/dshulyak/dml/software"
)

// execute runs a single non-batch descriptor and publishes r.
func (e *Emulator) execute(d *dml.Descriptor, r *dml.CompletionRecord) {
	if !e.caps.Opcodes.Has(d.Opcode()) {
		r.Complete(dml.DSA_COMP_BAD_OPCODE, 0)
		return
	}
	if d.TransferSize() > e.caps.MaxTransferSize {
		r.Complete(dml.DSA_COMP_XFER_ERANGE, 0)
		return
	}
	if e.fault != nil && faultable(d.Opcode()) && !d.HasFlags(dml.IDXD_OP_FLAG_BOF) {
		if off, ok := e.fault(d); ok && off < d.TransferSize() {
			e.partial(d, r, off)
			return
		}
	}
	software.ExecuteInto(d, r)
}

// partial completes the first off bytes of d and reports a page fault at
// the next destination byte.
func (e *Emulator) partial(d *dml.Descriptor, r *dml.CompletionRecord, off uint32) {
	if off > 0 {
		head := *d
		head.SetTransferSize(off)
		var scratch dml.CompletionRecord
		software.ExecuteInto(&head, &scratch)
	}
	e.logger.Debug("page fault",
		"opcode", d.Opcode().String(),
		"bytes_completed", off,
	)
	r.SetBytesCompleted(off)
	r.SetFaultAddress(d.Dst() + uint64(off))
	r.Complete(dml.DSA_COMP_PAGE_FAULT_NOBOF, 0)
}

// member runs one batch member and returns its raw status.
func (e *Emulator) member(sub *dml.Descriptor) uint8 {
	var scratch dml.CompletionRecord
	r := &scratch
	if addr := sub.CompletionAddress(); addr != 0 {
		r = dml.RecordAt(addr)
	}
	switch sub.Opcode() {
	case dml.DSA_OPCODE_BATCH, dml.DSA_OPCODE_DRAIN:
		r.Complete(dml.DSA_COMP_BAD_OPCODE, 0)
	default:
		e.execute(sub, r)
	}
	return r.RawStatus()
}

func failedStatus(raw uint8) bool {
	return raw != dml.DSA_COMP_SUCCESS && raw != dml.DSA_COMP_SUCCESS_PRED
}

// batch runs members in list order. A member starts only after every
// earlier member completed, so a fence holds for any member. The first
// failing member ends the batch and later members are not executed.
func (e *Emulator) batch(d *dml.Descriptor) {
	r := dml.RecordAt(d.CompletionAddress())
	count := d.TransferSize()
	list := d.Src()
	switch {
	case count == 0 || count > e.caps.MaxBatchSize:
		r.Complete(dml.DSA_COMP_DESC_CNT_ERANGE, 0)
		return
	case list%dml.DescriptorAlignment != 0:
		r.Complete(dml.DSA_COMP_DESCLIST_ALIGN, 0)
		return
	}
	for i := uint32(0); i < count; i++ {
		sub := dml.DescriptorAt(list + uint64(i)*dml.DescriptorSize)
		if raw := e.member(sub); failedStatus(raw) {
			e.logger.Debug("batch member failed",
				"index", i,
				"opcode", sub.Opcode().String(),
				"raw_status", raw,
			)
			r.SetBytesCompleted(i)
			r.Complete(dml.DSA_COMP_BATCH_FAIL, 0)
			return
		}
	}
	r.SetBytesCompleted(count)
	r.Complete(dml.DSA_COMP_SUCCESS, 0)
}
