package dml

// Result is the outcome shared by every operation.
type Result struct {
	Status Status
	// Raw is the masked completion record status, zero when the operation
	// was rejected before execution.
	Raw uint8
	// BytesCompleted is meaningful for partial completions.
	BytesCompleted uint32
	// FaultAddress is the address that faulted for partial completions.
	FaultAddress uint64
}

// Err returns nil if the operation succeeded.
func (r Result) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &Error{Status: r.Status, Raw: r.Raw}
}

// Decode reads the common fields of a completion record. The record must
// have been observed in a terminal state with Done.
func Decode(r *CompletionRecord) Result {
	raw := r.RawStatus()
	return Result{
		Status:         statusFromRaw(raw),
		Raw:            raw,
		BytesCompleted: r.BytesCompleted(),
		FaultAddress:   r.FaultAddress(),
	}
}

func failed(st Status) Result {
	return Result{Status: st}
}

// CompareOutcome is the result byte of compare and delta operations.
type CompareOutcome uint8

const (
	Equal    = CompareOutcome(ResultEqual)
	NotEqual = CompareOutcome(ResultNotEqual)
	// Overflow is reported by create_delta when the delta buffer is too small.
	Overflow = CompareOutcome(ResultOverflow)
)

func (c CompareOutcome) String() string {
	switch c {
	case Equal:
		return "equal"
	case NotEqual:
		return "not_equal"
	case Overflow:
		return "overflow"
	}
	return "unknown"
}

// CompareResult is returned by compare and compare_pattern.
type CompareResult struct {
	Result
	Outcome CompareOutcome
	// MismatchOffset is the byte offset of the first difference, 0 if equal.
	MismatchOffset uint32
}

func decodeCompare(r *CompletionRecord) CompareResult {
	res := Decode(r)
	out := CompareResult{Result: res, Outcome: CompareOutcome(r.Result())}
	if out.Outcome != Equal {
		out.MismatchOffset = res.BytesCompleted
	}
	return out
}

// CRCResult is returned by crc and copy_crc.
type CRCResult struct {
	Result
	CRC uint32
}

func decodeCRC(r *CompletionRecord) CRCResult {
	return CRCResult{Result: Decode(r), CRC: r.CRC()}
}

// DeltaResult is returned by create_delta.
type DeltaResult struct {
	Result
	Outcome CompareOutcome
	// RecordSize is the number of delta record bytes written.
	RecordSize uint32
}

func decodeDelta(r *CompletionRecord) DeltaResult {
	return DeltaResult{Result: Decode(r), Outcome: CompareOutcome(r.Result()), RecordSize: r.DeltaRecordSize()}
}

// DIFResult is returned by the DIF operations.
type DIFResult struct {
	Result
	// DIFStatus is a combination of DIFGuardMismatch, DIFAppTagMismatch and DIFRefTagMismatch.
	DIFStatus uint8
	// Tags are the tags found in the failing block.
	Tags DIFTags
}

func decodeDIF(r *CompletionRecord) DIFResult {
	return DIFResult{Result: Decode(r), DIFStatus: r.Result(), Tags: r.DIFTags()}
}

// BatchResult is returned by batch.
type BatchResult struct {
	Result
	// Completed is the number of sub-operations completed before the first failure.
	Completed uint32
}

func decodeBatch(r *CompletionRecord) BatchResult {
	res := Decode(r)
	return BatchResult{Result: res, Completed: res.BytesCompleted}
}
