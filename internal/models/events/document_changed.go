package events

import (
	"encoding/json"
	"time"
)

// DocumentChanged is published after a document has been written. It carries the
// whole document so subscribers can replace their state without another read.
type DocumentChanged struct {
	Key        string          `json:"key"`
	Origin     string          `json:"origin"`
	Document   json.RawMessage `json:"document"`
	OccurredAt time.Time       `json:"occurred_at"`
}
