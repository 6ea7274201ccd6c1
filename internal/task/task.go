package task

import (
	"encoding/json"
	"time"
)

// Envelope is the JSON payload the demo binaries schedule. The scheduler
// treats it as an opaque string; only the API and worker look inside.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Body      json.RawMessage `json:"body"`
	CreatedAt int64           `json:"created_at"`
	ExecuteAt int64           `json:"execute_at"`
}

// Encode marshals the envelope into the payload string handed to the
// scheduler.
func (e Envelope) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a payload string popped from the queue.
func Decode(payload string) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal([]byte(payload), &e)
	return e, err
}

// ExecuteTime converts the millisecond execution timestamp.
func (e Envelope) ExecuteTime() time.Time {
	return time.UnixMilli(e.ExecuteAt)
}
