package domain

import "errors"

// Engine operation failures. These cross the engine boundary as values;
// the transport adapter maps them to orderError events, nothing is thrown
// across the socket.
var (
	ErrUnknownOrder      = errors.New("unknown order")
	ErrDuplicateOrder    = errors.New("duplicate order")
	ErrRoleAlreadyFilled = errors.New("role already filled")
	ErrSessionTerminal   = errors.New("session is terminal")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)
