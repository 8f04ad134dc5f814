package controller

import "errors"

var (
	// ErrUnknownAction indicates a command verb the protocol does not know.
	ErrUnknownAction = errors.New("controller: unknown action")

	// ErrMalformedPayload indicates an unparseable inbound message.
	// Such messages are dropped without a response or state change.
	ErrMalformedPayload = errors.New("controller: malformed payload")
)
