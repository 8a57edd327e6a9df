package image

import (
	"context"
	"errors"
)

// ErrEmptyResult is returned when the provider answered successfully but the
// response carried no image that could be extracted.
var ErrEmptyResult = errors.New("generation returned no image")

type Params struct {
	Source Encoded
	Prompt string
}

type Generator interface {
	Generate(context.Context, Params) (Encoded, error)
}

// APIError is a rejection reported by the provider. Error returns the
// provider's message unchanged so it can be shown to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}
