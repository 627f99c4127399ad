package pipeline

// Class categorizes a step outcome and drives the pipeline's continuation decision.
type Class int

const (
	// ClassOk means the step produced its artifact.
	ClassOk Class = iota
	// ClassRecovered means the step failed but the failure is absorbed:
	// the run continues without the step's artifact.
	ClassRecovered
	// ClassSkipped means the step was disabled and performed no work.
	ClassSkipped
	// ClassFatal means the step failed and the run must abort.
	ClassFatal
)

// String returns the lower-case name of the class for logs.
func (c Class) String() string {
	switch c {
	case ClassOk:
		return "ok"
	case ClassRecovered:
		return "recovered"
	case ClassSkipped:
		return "skipped"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single pipeline step.
type Result struct {
	// Class decides whether the run continues.
	Class Class
	// Path is the produced artifact location, set only for ClassOk.
	Path string
	// Err carries the failure for ClassRecovered and ClassFatal.
	Err error
	// Reason explains a ClassSkipped result.
	Reason string
}

// Ok reports a produced artifact at the given path.
func Ok(path string) Result {
	return Result{Class: ClassOk, Path: path}
}

// Recovered reports an absorbed failure: the run continues without the artifact.
func Recovered(err error) Result {
	return Result{Class: ClassRecovered, Err: err}
}

// Skipped reports that the step was disabled.
func Skipped(reason string) Result {
	return Result{Class: ClassSkipped, Reason: reason}
}

// Fatal reports a failure that aborts the run.
func Fatal(err error) Result {
	return Result{Class: ClassFatal, Err: err}
}
