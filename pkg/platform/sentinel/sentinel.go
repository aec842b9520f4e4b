package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: a uniqueness constraint (passport number, active holder) was hit
//   - ErrUnavailable: backing store or broker temporarily unreachable
//
// Lifecycle and validation failures are decided by services and use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
