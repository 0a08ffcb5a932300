// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all CLI commands.
//
// Commands always return errors and never print-and-return-nil. Execute
// displays the error once and maps it to an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general/unknown error
	ExitError = 1
	// ExitUsage indicates invalid command usage or arguments
	ExitUsage = 2
	// ExitConfig indicates an invalid config file or setting
	ExitConfig = 3
	// ExitNotRunning indicates the Ollama server could not be reached
	ExitNotRunning = 5
	// ExitNotFound indicates a conversation or model was not found
	ExitNotFound = 7
	// ExitCancelled indicates the user interrupted the operation
	ExitCancelled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "config", "export")
	Action  string // Action being performed (e.g., "set", "delete")
	Reason  string // Human-readable reason
	Code    int    // Exit code; zero means derive it from Err
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// UsageError reports bad arguments.
type UsageError struct {
	Message string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return e.Message + "\nExample: " + e.Example
	}
	return e.Message
}

// NewUsageError creates a usage error with an optional example.
func NewUsageError(message, example string) error {
	return &UsageError{Message: message, Example: example}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != 0 {
		return cmdErr.Code
	}

	var usageErr *UsageError
	var validateErrs config.ValidateErrors
	switch {
	case errors.As(err, &usageErr):
		return ExitUsage
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.As(err, &validateErrs):
		return ExitConfig
	case ollama.IsTransport(err):
		return ExitNotRunning
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, conversation.ErrAmbiguous):
		return ExitNotFound
	case errors.Is(err, session.ErrNoModel):
		return ExitConfig
	}
	return ExitError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err in the human-readable format, or as a JSON
// response when jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if ExitCode(err) == ExitNotRunning {
		fmt.Fprintln(w, DimStyle.Render("Is Ollama running? Start it with: ollama serve"))
	}
}
