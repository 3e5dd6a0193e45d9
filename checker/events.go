package checker

// EventKind identifies what a session Event reports.
type EventKind int

const (
	// EventBatchStarted is sent when a batch begins; IDs lists its bookmarks,
	// already marked checking.
	EventBatchStarted EventKind = iota
	// EventProgress is sent when every bookmark of a batch has finished.
	EventProgress
	// EventComplete is sent once the queue is drained. A stopped session
	// never sends it.
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventBatchStarted:
		return "batch-started"
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event reports session progress.
type Event struct {
	Kind    EventKind
	Batch   int      // 1-based batch number; 0 for EventComplete
	IDs     []string // bookmark IDs of the batch
	Results map[string]CheckResult
	Checked int // bookmarks finished so far
	Total   int // bookmarks queued at session start
}

// Percent returns progress in the range 0-100. An empty session reports 0,
// even on its EventComplete.
func (e Event) Percent() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Checked) * 100 / float64(e.Total)
}
