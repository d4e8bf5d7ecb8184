package api

import "fmt"

// Error is a logical failure reported by the retrieval server, as opposed
// to a transport-level failure. Detail carries the server's own message
// when it provided one.
type Error struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// errorBody covers both spellings the server uses for error details.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Detail != "" {
		return b.Detail
	}
	return b.Message
}
