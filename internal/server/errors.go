package server

import "fmt"

// Error kinds carried in outbound error events. Validation and
// not-found errors are reported to the caller only; provider errors
// abort the message pipeline; store errors are fatal to the operation
// unless it is best-effort; concurrency errors are resolved internally
// by re-fetching and only surface when that fails too.
const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindProvider    = "provider"
	KindStore       = "store"
	KindConcurrency = "concurrency"
)

// EventError is the error half of an event result: the stage names the
// pipeline step that failed, the detail is human readable.
type EventError struct {
	Kind   string `json:"kind"`
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Stage, e.Detail)
}

func validationError(stage, detail string) *EventError {
	return &EventError{Kind: KindValidation, Stage: stage, Detail: detail}
}

func notFoundError(stage, detail string) *EventError {
	return &EventError{Kind: KindNotFound, Stage: stage, Detail: detail}
}

func providerError(stage string, err error) *EventError {
	return &EventError{Kind: KindProvider, Stage: stage, Detail: err.Error()}
}

func storeError(stage string, err error) *EventError {
	return &EventError{Kind: KindStore, Stage: stage, Detail: err.Error()}
}

func concurrencyError(stage string, err error) *EventError {
	return &EventError{Kind: KindConcurrency, Stage: stage, Detail: err.Error()}
}
