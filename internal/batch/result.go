package batch

// OpResult is the recorded outcome of one batch operation.
type OpResult struct {
	Index     int // position in submission order, zero-based
	Operation Operation
	ExitCode  int
	Output    string // combined stdout+stderr for the operation
	Attempts  int    // attempts consumed, including the successful one
}

// Succeeded reports whether the operation finished with exit code 0.
func (r OpResult) Succeeded() bool {
	return r.ExitCode == 0
}

// Result is the aggregated outcome of a whole batch. Results are in
// submission order and cover every operation; SuccessCount plus
// FailureCount always equals the operation count.
type Result struct {
	BatchID      string
	Results      []OpResult
	SuccessCount int
	FailureCount int
}

// Succeeded reports whether every operation in the batch succeeded.
func (r Result) Succeeded() bool {
	return r.FailureCount == 0
}

// ExitCode maps the aggregate outcome to a process exit code: zero only
// when all operations succeeded.
func (r Result) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}

func (r *Result) record(res OpResult) {
	r.Results = append(r.Results, res)
	if res.Succeeded() {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}
