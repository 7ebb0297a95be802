package tagcapture

import (
	"time"

	"github.com/slotheather55/webspark-sub000/internal/models"
)

// Correlator attributes captured tag events to the action that triggered
// them using a fixed time window.
type Correlator struct {
	window time.Duration
}

// NewCorrelator builds a correlator with the given attribution window.
// A non-positive window falls back to two seconds.
func NewCorrelator(window time.Duration) *Correlator {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &Correlator{window: window}
}

func (c *Correlator) Window() time.Duration { return c.window }

// Correlate splits records into events attributed to the action performed
// at actionTime and the remainder. A record is attributed when its delay
// from the action is within [0, window], endpoints included; events from
// before the action or past the window stay unattributed.
func (c *Correlator) Correlate(records []models.TagEventRecord, actionTime time.Time, actionID int, strategy string) ([]models.CorrelatedEvent, []models.TagEventRecord) {
	var attributed []models.CorrelatedEvent
	var rest []models.TagEventRecord
	windowMs := c.window.Milliseconds()

	for _, rec := range records {
		delayMs := rec.Timestamp.Sub(actionTime).Milliseconds()
		if delayMs < 0 || delayMs > windowMs {
			rest = append(rest, rec)
			continue
		}
		attributed = append(attributed, models.CorrelatedEvent{
			TagEventRecord:     rec,
			TriggeringActionID: actionID,
			StrategyUsed:       strategy,
			DelayMs:            delayMs,
		})
	}
	return attributed, rest
}
