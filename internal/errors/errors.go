// Package errors provides structured errors for the investigation engine.
// Above the per-document level errors are data, not control flow: stages
// record them and the pipeline advances, so every error carries enough
// context to be useful later in the error log.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorType categorizes where in the engine an error originated.
type ErrorType int

const (
	// ErrorTypeConfig - missing or invalid configuration, fatal at startup
	ErrorTypeConfig ErrorType = iota
	// ErrorTypeIngestion - file discovery, hashing, dedup failures
	ErrorTypeIngestion
	// ErrorTypeExtraction - per-document text extraction failures
	ErrorTypeExtraction
	// ErrorTypeStorage - ledger, investigation store, checkpoint failures
	ErrorTypeStorage
	// ErrorTypeGraph - graph store adapter failures
	ErrorTypeGraph
	// ErrorTypeVector - vector store or embedding failures
	ErrorTypeVector
	// ErrorTypeLLM - narrative generation failures
	ErrorTypeLLM
	// ErrorTypeCompliance - compliance gate failures
	ErrorTypeCompliance
	// ErrorTypePipeline - orchestration failures (checkpoint, resume, cancel)
	ErrorTypePipeline
)

// Severity tells callers whether an error degrades output or stops the run.
type Severity int

const (
	// SeverityLow - degraded output, run continues
	SeverityLow Severity = iota
	// SeverityMedium - stage marked partial, run continues
	SeverityMedium
	// SeverityHigh - significant loss of output, run continues
	SeverityHigh
	// SeverityCritical - fatal, run cannot start or continue
	SeverityCritical
)

// Error is a structured error with context.
type Error struct {
	Type      ErrorType
	Severity  Severity
	Message   string
	Cause     error
	Context   map[string]any
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches on error type, so errors.Is works across wrapped causes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal reports whether this error should stop execution.
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders the error with its context for logs.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n", severityString(e.Severity), typeString(e.Type), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}
	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}
	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeIngestion:
		return "INGESTION"
	case ErrorTypeExtraction:
		return "EXTRACTION"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeGraph:
		return "GRAPH"
	case ErrorTypeVector:
		return "VECTOR"
	case ErrorTypeLLM:
		return "LLM"
	case ErrorTypeCompliance:
		return "COMPLIANCE"
	case ErrorTypePipeline:
		return "PIPELINE"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// New creates an error with the given type, severity, and message.
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:      errType,
		Severity:  severity,
		Message:   message,
		Context:   make(map[string]any),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error. Returns nil for a nil cause.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:      errType,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]any),
		Timestamp: time.Now(),
	}
}

// Convenience constructors for the common cases.

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a fatal configuration error with formatting.
func ConfigErrorf(format string, args ...any) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ExtractionError wraps a per-document extraction failure.
func ExtractionError(err error, message string) *Error {
	return Wrap(err, ErrorTypeExtraction, SeverityLow, message)
}

// ExtractionErrorf wraps a per-document extraction failure with formatting.
func ExtractionErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, ErrorTypeExtraction, SeverityLow, fmt.Sprintf(format, args...))
}

// StorageError wraps a ledger or store failure.
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityHigh, message)
}

// StorageErrorf wraps a ledger or store failure with formatting.
func StorageErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityHigh, fmt.Sprintf(format, args...))
}

// GraphError wraps a graph store failure. These degrade to empty results.
func GraphError(err error, message string) *Error {
	return Wrap(err, ErrorTypeGraph, SeverityMedium, message)
}

// VectorError wraps a vector store or embedding failure.
func VectorError(err error, message string) *Error {
	return Wrap(err, ErrorTypeVector, SeverityMedium, message)
}

// LLMError wraps a narrative generation failure.
func LLMError(err error, message string) *Error {
	return Wrap(err, ErrorTypeLLM, SeverityLow, message)
}

// ComplianceError wraps a compliance gate failure.
func ComplianceError(err error, message string) *Error {
	return Wrap(err, ErrorTypeCompliance, SeverityHigh, message)
}

// PipelineError wraps an orchestration failure.
func PipelineError(err error, message string) *Error {
	return Wrap(err, ErrorTypePipeline, SeverityHigh, message)
}

// PipelineErrorf wraps an orchestration failure with formatting.
func PipelineErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, ErrorTypePipeline, SeverityHigh, fmt.Sprintf(format, args...))
}

// IsFatal reports whether an arbitrary error should stop execution.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return false
}

// GetSeverity returns the severity of an error, defaulting to medium for
// foreign errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	if e, ok := err.(*Error); ok {
		return e.Severity
	}
	return SeverityMedium
}

// GetType returns the type of an error.
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypePipeline
	}
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ErrorTypePipeline
}
