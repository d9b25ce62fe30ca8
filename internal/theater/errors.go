package theater

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownGenre is returned when a play carries a genre tag outside the supported set.
	ErrUnknownGenre = errors.New("unknown play type")
	// ErrPlayNotFound is returned when a performance references a play missing from the catalog.
	ErrPlayNotFound = errors.New("play not found")
	// ErrInvalidRates indicates a rate table that cannot be used for pricing.
	ErrInvalidRates = errors.New("invalid rates")
)

// UnknownGenreError carries the offending genre tag.
type UnknownGenreError struct {
	Genre string
}

func (e *UnknownGenreError) Error() string {
	return fmt.Sprintf("unknown type: %s", e.Genre)
}

// Unwrap lets errors.Is match ErrUnknownGenre.
func (e *UnknownGenreError) Unwrap() error { return ErrUnknownGenre }

// PlayNotFoundError carries the play id that failed to resolve.
type PlayNotFoundError struct {
	PlayID string
}

func (e *PlayNotFoundError) Error() string {
	return fmt.Sprintf("play not found: %s", e.PlayID)
}

// Unwrap lets errors.Is match ErrPlayNotFound.
func (e *PlayNotFoundError) Unwrap() error { return ErrPlayNotFound }
