package domain

import "errors"

var (
	// ErrEmptyPool is returned when the question pool has no questions to pick from.
	ErrEmptyPool = errors.New("question pool is empty")
	// ErrInvalidQuestion indicates a question that violates the pool rules
	// (missing text, fewer than two options, or an answer outside the options).
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrPoolNotFound indicates the backing store has no question pool at all.
	ErrPoolNotFound = errors.New("question pool not found")
)
