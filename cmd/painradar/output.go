package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/steveyegge/painradar/internal/pipeline"
	"github.com/steveyegge/painradar/internal/ratelimit"
	"github.com/steveyegge/painradar/internal/retry"
)

// errReported marks a failure whose error envelope was already written
var errReported = errors.New("error already reported")

// usageError is a problem with the command line rather than the run
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string        `json:"message"`
	Details *errorDetails `json:"details,omitempty"`
}

type errorDetails struct {
	Class    string `json:"class,omitempty"`
	APICalls int    `json:"api_calls"`
}

func success(data any) envelope {
	return envelope{OK: true, Data: data}
}

// failure builds an error envelope. Details are attached once a runner
// exists, so api_calls shows how much budget the failed run consumed.
func failure(err error, runner *pipeline.Runner) envelope {
	body := &errorBody{Message: err.Error()}
	var ue *usageError
	if runner != nil && !errors.As(err, &ue) {
		body.Details = &errorDetails{
			Class:    errorClass(err),
			APICalls: runner.APICalls(),
		}
	}
	return envelope{OK: false, Error: body}
}

// errorClass names the failure for machine consumers
func errorClass(err error) string {
	var re *retry.Error
	switch {
	case errors.Is(err, ratelimit.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &re):
		return re.Class.String()
	default:
		return ""
	}
}

func writeEnvelope(w io.Writer, env envelope, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(env)
}
