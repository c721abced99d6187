package bus

import "time"

// Event is something that happened during a run, published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the extractor.
const (
	KindStageChanged = "run.stage_changed"
	KindRunProgress  = "run.progress"
)
