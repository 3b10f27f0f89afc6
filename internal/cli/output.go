package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // mapping or publish rejected
	ExitCommandError = 2 // bad flags, unreadable files, unreachable database
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type response struct {
	Status string     `json:"status"`
	Data   any        `json:"data,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// formatter writes command results as JSON envelopes or plain text.
type formatter struct {
	format string
	out    io.Writer
	errOut io.Writer
}

func newFormatter(opts *RootOptions, out io.Writer, errOut io.Writer) *formatter {
	return &formatter{format: opts.Format, out: out, errOut: errOut}
}

func (f *formatter) success(data any, text func(io.Writer) error) error {
	if f.format == "json" {
		return writeJSON(f.out, response{Status: "ok", Data: data})
	}
	return text(f.out)
}

// failure reports err and returns it wrapped with the given exit code.
func (f *formatter) failure(code int, message string, err error) error {
	body := &errorBody{Code: "MAPPING_COMMAND_ERROR", Message: message}
	var richErr *goerrors.Error
	if errors.As(err, &richErr) {
		if richErr.TextCode != "" {
			body.Code = richErr.TextCode
		}
		body.Metadata = richErr.Metadata
	}
	if err != nil {
		body.Message = fmt.Sprintf("%s: %v", message, err)
	}
	if f.format == "json" {
		if writeErr := writeJSON(f.out, response{Status: "error", Error: body}); writeErr != nil {
			return writeErr
		}
	} else {
		fmt.Fprintf(f.errOut, "error [%s]: %s\n", body.Code, body.Message)
	}
	return WrapExitError(code, message, err)
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
