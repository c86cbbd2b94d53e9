package domain

// Generation identifies the freshest user action. Completions tagged with an
// older generation are discarded.
type Generation uint64

// Capture selects which output streams a spawned process keeps.
type Capture int

const (
	CaptureNone Capture = iota
	CaptureStdout
	CaptureStderr
	CaptureBoth
)

// ParseCapture maps the sandbox spelling to a Capture. Unknown values
// capture both streams.
func ParseCapture(s string) Capture {
	switch s {
	case "none", "discard":
		return CaptureNone
	case "stdout":
		return CaptureStdout
	case "stderr":
		return CaptureStderr
	default:
		return CaptureBoth
	}
}

func (c Capture) String() string {
	switch c {
	case CaptureNone:
		return "none"
	case CaptureStdout:
		return "stdout"
	case CaptureStderr:
		return "stderr"
	default:
		return "both"
	}
}

// ProcessOutput is the result of a spawn capability call. A non-zero exit
// code is not an error.
type ProcessOutput struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// SpawnRequest describes a process the plugin wants the host to run.
type SpawnRequest struct {
	Program string
	Args    []string
	Capture Capture
}

// DeferredAction is host-mediated work requested by a plugin. Spawn is the
// only variant.
type DeferredAction struct {
	Spawn *SpawnRequest
}

// DeferredResult is fed back to the plugin after the host performs a
// DeferredAction. Exactly one of Output and Err is set.
type DeferredResult struct {
	Output *ProcessOutput
	Err    *IOError
}

// QueryResultKind discriminates QueryResult.
type QueryResultKind int

const (
	ResultImmediate QueryResultKind = iota
	ResultDeferred
)

// QueryResult is what a plugin returns from query or handleDeferred.
type QueryResult struct {
	Kind   QueryResultKind
	Items  []ListItem
	Style  *ListStyle
	Action DeferredAction
}

// Immediate builds a terminal result.
func Immediate(items []ListItem, style *ListStyle) QueryResult {
	return QueryResult{Kind: ResultImmediate, Items: items, Style: style}
}

// Deferred builds a result that asks the host to perform action first.
func Deferred(action DeferredAction) QueryResult {
	return QueryResult{Kind: ResultDeferred, Action: action}
}
