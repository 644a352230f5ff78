package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"creating_not_terminal", JobStatusCreating, false},
		{"created_not_terminal", JobStatusCreated, false},
		{"writing_not_terminal", JobStatusWriting, false},
		{"reading_not_terminal", JobStatusReading, false},
		{"deleting_not_terminal", JobStatusDeleting, false},
		{"done_terminal", JobStatusDone, true},
		{"failed_terminal", JobStatusFailed, true},
		{"cancelled_terminal", JobStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestJobStatusIsCancellable(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"creating_cancellable", JobStatusCreating, true},
		{"writing_cancellable", JobStatusWriting, true},
		{"reading_cancellable", JobStatusReading, true},
		{"deleting_cancellable", JobStatusDeleting, true},
		{"created_not_cancellable", JobStatusCreated, false},
		{"done_not_cancellable", JobStatusDone, false},
		{"failed_not_cancellable", JobStatusFailed, false},
		{"cancelled_not_cancellable", JobStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsCancellable())
		})
	}
}
