package events

import "encoding/json"

// Event name constants
const (
	// Cycle carries a publish.Message for every poll cycle.
	Cycle = "cycle"
	// GroupFailed is sent once per failed computation group in a cycle.
	GroupFailed = "group.failed"
	// CalibrationReloaded is sent after calibration tables were reloaded.
	CalibrationReloaded = "calibration.reloaded"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// GroupFailedEvent is the typed payload for group.failed.
type GroupFailedEvent struct {
	Cycle   string `json:"cycle"`
	Group   string `json:"group"`
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
}

// CalibrationReloadedEvent is the typed payload for calibration.reloaded.
type CalibrationReloadedEvent struct {
	Tables  map[string]int `json:"tables"`
	Message string         `json:"message,omitempty"`
	Ts      int64          `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.GroupFailedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Group, payload.Message)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
