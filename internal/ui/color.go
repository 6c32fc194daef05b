// Package ui provides terminal styling for tokensync output.
package ui

import (
	"github.com/fatih/color"

	"github.com/klauern/tokensync/internal/sync"
)

// Color function types for styled output.
var (
	// Success is used for successful operations (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for errors and failures (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for warnings and cautions (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis (bold white).
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information (faint).
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for table headers (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Status symbols with colors.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolSkipped = "-"
	SymbolPending = "○"
)

// StatusSuccess returns a green checkmark with optional message.
func StatusSuccess(msg string) string {
	if msg == "" {
		return Success(SymbolSuccess)
	}
	return Success(SymbolSuccess) + " " + msg
}

// StatusError returns a red X with optional message.
func StatusError(msg string) string {
	if msg == "" {
		return Error(SymbolError)
	}
	return Error(SymbolError) + " " + msg
}

// StatusWarning returns a yellow warning with optional message.
func StatusWarning(msg string) string {
	if msg == "" {
		return Warning(SymbolWarning)
	}
	return Warning(SymbolWarning) + " " + msg
}

// StatusSkipped returns a dimmed skip symbol with optional message.
func StatusSkipped(msg string) string {
	if msg == "" {
		return Dim(SymbolSkipped)
	}
	return Dim(SymbolSkipped) + " " + msg
}

// Severity renders a conflict severity: high in red, medium in yellow and
// low dimmed.
func Severity(s sync.Severity) string {
	switch s {
	case sync.SeverityHigh:
		return Error(string(s))
	case sync.SeverityMedium:
		return Warning(string(s))
	default:
		return Dim(string(s))
	}
}

// Kind renders a conflict kind.
func Kind(k sync.ConflictKind) string {
	switch k {
	case sync.KindTypeChange, sync.KindNameConflict:
		return Error(string(k))
	case sync.KindAddition:
		return Success(string(k))
	case sync.KindDeletion:
		return Warning(string(k))
	default:
		return Info(string(k))
	}
}

// Outcome renders a merge outcome with its status symbol.
func Outcome(action sync.Action, msg string) string {
	switch action {
	case sync.ActionApplied:
		return StatusSuccess(msg)
	case sync.ActionSkipped:
		return StatusError(msg)
	default:
		return StatusSkipped(msg)
	}
}

// DisableColors disables all color output.
// This is useful for piping output or for users who prefer no colors.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
