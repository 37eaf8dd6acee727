package audit

import "errors"

var (
	// ErrStorageNotAvailable indicates the storage backend is unavailable
	ErrStorageNotAvailable = errors.New("storage backend is unavailable")

	// ErrEventValidation indicates event validation failed
	ErrEventValidation = errors.New("event validation failed")

	// ErrReplayOutOfOrder indicates events passed to Replay skip or repeat a version
	ErrReplayOutOfOrder = errors.New("audit trail has a version gap")

	// ErrReplayMixedItems indicates events passed to Replay belong to different items
	ErrReplayMixedItems = errors.New("audit trail mixes several items")
)
