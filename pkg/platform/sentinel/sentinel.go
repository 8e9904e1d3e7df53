package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and caches return these
// (optionally wrapped) so services can decide how to degrade.
//
//   - ErrNotFound: the key does not exist in the store
//   - ErrUnavailable: the backend could not be reached or timed out
//   - ErrInvalidState: a component was used in a state it does not support
//
// Input validation failures use pkg/domain-errors instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
