package app

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial" // some items failed
	StatusError   = "error"   // at least one target failed
)

// Operation tracks one CLI invocation. Its short ID tags every log line.
type Operation struct {
	ID        string
	Command   string
	Targets   []string
	StartedAt time.Time
	Status    string
}

// NewOperation creates an operation for command with a fresh ID.
func NewOperation(command string, started time.Time) *Operation {
	return &Operation{
		ID:        strings.SplitN(uuid.NewString(), "-", 2)[0],
		Command:   command,
		StartedAt: started,
		Status:    StatusSuccess,
	}
}

// Record folds in the outcome of one target. Statuses only get worse.
func (op *Operation) Record(status string) {
	if rank(status) > rank(op.Status) {
		op.Status = status
	}
}

func rank(status string) int {
	switch status {
	case StatusError:
		return 2
	case StatusPartial:
		return 1
	default:
		return 0
	}
}
