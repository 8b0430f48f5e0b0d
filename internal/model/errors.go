package model

import "errors"

var (
	// ErrNameRequired is returned when a board creation request is missing the name.
	ErrNameRequired = errors.New("board name is required")

	// ErrBoardNotFound is returned when a board is not found in the registry.
	ErrBoardNotFound = errors.New("board not found")

	// ErrIDCollision is returned when the board identifier space is exhausted.
	ErrIDCollision = errors.New("board id space exhausted")

	// ErrBoardFull is returned when the per-board participant cap is exceeded.
	ErrBoardFull = errors.New("board participant limit reached")

	// ErrUnauthorized is returned when no verified identity accompanies a request.
	ErrUnauthorized = errors.New("unauthorized")
)
