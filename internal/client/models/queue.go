package models

import "time"

// OperationKind identifies a queued remote write.
type OperationKind string

const (
	OpCreateMap OperationKind = "createMap"
	OpAddPin    OperationKind = "addPin"
)

// QueuedOperation is a pending remote write awaiting retry. The payload is
// the exact remote request body (plaintext fields, fuzzed coordinates) kept
// as a generic map so optional fields can be stripped on schema skew.
type QueuedOperation struct {
	ID         string         `json:"id"`
	Kind       OperationKind  `json:"kind"`
	Payload    map[string]any `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Retries    int            `json:"retries"`
}
