package fetch

// Event represents a state change or progress update for one resolution.
//
// Terminal events (Complete, Failed, Cancelled) cause the reconciler to
// settle the repository record. Progress events carry transient byte counts
// and do not mutate repository state.
type Event struct {
	ResolutionID string    `json:"resolutionId"`
	Type         EventType `json:"type"`
	Progress     *Progress `json:"progress,omitempty"`
	Path         string    `json:"path,omitempty"`
	FromCache    bool      `json:"fromCache,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// EventType defines the set of events a resolution may emit.
type EventType string

const (
	EventStart     EventType = "Start"
	EventProgress  EventType = "Progress"
	EventComplete  EventType = "Complete"
	EventFailed    EventType = "Failed"
	EventCancelled EventType = "Cancelled"
)

// Terminal reports whether the event settles the resolution.
func (t EventType) Terminal() bool {
	switch t {
	case EventComplete, EventFailed, EventCancelled:
		return true
	}
	return false
}

// Progress carries byte counts for an in-flight network fetch. Total is -1
// when the transport did not declare a length (indeterminate).
type Progress struct {
	Received int64 `json:"received"`
	Total    int64 `json:"total"`
}
