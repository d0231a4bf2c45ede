package normalize

// SkipReason classifies why a single raw record did not make it into the
// canonical table.
type SkipReason string

const (
	SkipUnknownSchema SkipReason = "unknown-schema"
	SkipMissingID     SkipReason = "missing-id"
	SkipInvalidJSON   SkipReason = "invalid-json"
)

// Result is the outcome of normalizing one raw record: either a canonical
// record or a skip with a reason. A skip never aborts the batch.
type Result struct {
	Record *Record
	Reason SkipReason
	Detail string
}

func Ok(record Record) Result {
	return Result{Record: &record}
}

func Skip(reason SkipReason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

func (r Result) Skipped() bool {
	return r.Record == nil
}

// Report accumulates per-run normalization outcomes so skips are counted
// instead of silently discarded.
type Report struct {
	Parsed  int
	Skipped map[SkipReason]int
}

func NewReport() *Report {
	return &Report{Skipped: make(map[SkipReason]int)}
}

func (r *Report) Add(res Result) {
	if res.Skipped() {
		r.Skipped[res.Reason]++
		return
	}
	r.Parsed++
}

func (r *Report) TotalSkipped() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}
