package models

import "fmt"

// PathNotFoundException signals a request-shape error: the caller addressed
// a (namespace, key) pair that has no live blob. It short-circuits
// download/delete/metadata lookups without marking any job FAILED — it is
// not an operational failure.
type PathNotFoundException struct {
	Namespace string
	Key       string
	Message   string
}

func (e *PathNotFoundException) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("path not found: %s/%s", e.Namespace, e.Key)
}

// NewPathNotFoundException builds a PathNotFoundException for the given
// namespace/key pair.
func NewPathNotFoundException(namespace, key string) *PathNotFoundException {
	return &PathNotFoundException{
		Namespace: namespace,
		Key:       key,
		Message:   fmt.Sprintf("path not found: %s/%s", namespace, key),
	}
}

// ServerLimitException signals admission refusal: both the running and
// pending queues are at capacity, or sampled memory usage is above the
// configured limit. An upload refused before its row is written persists
// no Job; one refused by the re-check after its body was read leaves its
// CREATING row behind.
type ServerLimitException struct {
	Message string
	Limit   int
	Current int
}

func (e *ServerLimitException) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server limit reached: %d/%d pending jobs", e.Current, e.Limit)
}

// NewServerLimitException builds a ServerLimitException for the pending
// queue's limit and current occupancy.
func NewServerLimitException(limit, current int) *ServerLimitException {
	return &ServerLimitException{
		Message: fmt.Sprintf("server limit reached: %d/%d pending jobs", current, limit),
		Limit:   limit,
		Current: current,
	}
}
