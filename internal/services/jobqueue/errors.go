package jobqueue

import "errors"

// errQueueClosed is returned by admission calls made after Close.
var errQueueClosed = errors.New("jobqueue: queue is closed")
