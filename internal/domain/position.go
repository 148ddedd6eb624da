package domain

import "context"

// ReadingPosition is the last saved page of a material.
// JSON keys match the records already stored by the web client.
type ReadingPosition struct {
	MaterialID string `json:"materialId"`
	Title      string `json:"materialTitle,omitempty"`
	SubjectID  string `json:"subjectId,omitempty"`
	Page       int    `json:"page"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}

// KVStore is the persistence contract used for reader state.
// Get reports found=false with a nil error when the key does not exist.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}
