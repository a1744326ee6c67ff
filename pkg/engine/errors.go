package engine

import "errors"

// Intake rejections. These carry no side effects: nothing in any book
// changed when one of them comes back.
var (
	// ErrUnserializableInput marks a command whose payload failed
	// structural validation (non-positive quantity or price, unknown
	// enum value). Rejected before the command touches any book.
	ErrUnserializableInput = errors.New("unserializable input")

	// ErrAssetNotEnabled marks a command for an asset the engine does not
	// currently trade.
	ErrAssetNotEnabled = errors.New("asset not enabled")

	// ErrOrderNotFound is returned for a cancel of an order that is not
	// resting (already filled, already cancelled, or never existed).
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOrderOwner is returned for a cancel by someone other than the
	// order's owner.
	ErrNotOrderOwner = errors.New("not order owner")

	// ErrEngineClosed is returned by Submit once intake has been closed.
	// The command was never accepted.
	ErrEngineClosed = errors.New("trading engine closed")
)
