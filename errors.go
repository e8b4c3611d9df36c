// Classifies Notion API error responses.

package notion

import (
	"fmt"
)

// ErrorKind identifies one entry of the Notion API error taxonomy. Kinds
// are usable as errors.Is targets:
//
//	if errors.Is(err, notion.ErrObjectNotFound) { ... }
type ErrorKind string

// Error kinds reported by the API, keyed by the "code" field of the error
// body. ErrClient and ErrServer are the fallback buckets for codes outside
// the table, chosen by status range.
const (
	ErrInvalidJSON                   ErrorKind = "invalid_json"
	ErrInvalidRequestURL             ErrorKind = "invalid_request_url"
	ErrInvalidRequest                ErrorKind = "invalid_request"
	ErrInvalidGrant                  ErrorKind = "invalid_grant"
	ErrValidation                    ErrorKind = "validation_error"
	ErrMissingVersion                ErrorKind = "missing_version"
	ErrUnauthorized                  ErrorKind = "unauthorized"
	ErrRestrictedResource            ErrorKind = "restricted_resource"
	ErrObjectNotFound                ErrorKind = "object_not_found"
	ErrConflict                      ErrorKind = "conflict_error"
	ErrRateLimited                   ErrorKind = "rate_limited"
	ErrInternalServer                ErrorKind = "internal_server_error"
	ErrServiceUnavailable            ErrorKind = "service_unavailable"
	ErrDatabaseConnectionUnavailable ErrorKind = "database_connection_unavailable"
	ErrClient                        ErrorKind = "client_error"
	ErrServer                        ErrorKind = "server_error"
)

// Error implements the error interface so a kind can be an errors.Is target.
func (k ErrorKind) Error() string {
	return string(k)
}

// knownKinds maps the API error-code discriminator to a kind.
var knownKinds = map[string]ErrorKind{
	"invalid_json":                    ErrInvalidJSON,
	"invalid_request_url":             ErrInvalidRequestURL,
	"invalid_request":                 ErrInvalidRequest,
	"invalid_grant":                   ErrInvalidGrant,
	"validation_error":                ErrValidation,
	"missing_version":                 ErrMissingVersion,
	"unauthorized":                    ErrUnauthorized,
	"restricted_resource":             ErrRestrictedResource,
	"object_not_found":                ErrObjectNotFound,
	"conflict_error":                  ErrConflict,
	"rate_limited":                    ErrRateLimited,
	"internal_server_error":           ErrInternalServer,
	"service_unavailable":             ErrServiceUnavailable,
	"database_connection_unavailable": ErrDatabaseConnectionUnavailable,
}

// classifyKind maps an error code and HTTP status to a kind. Unknown codes
// fall into the generic client/server bucket by status range.
func classifyKind(code string, status int) ErrorKind {
	if k, ok := knownKinds[code]; ok {
		return k
	}
	if status >= 500 {
		return ErrServer
	}
	return ErrClient
}

// Error is a classified Notion API error. It retains the offending URL,
// the outgoing request body and the raw response body so a failed call can
// be reconstructed and retried manually.
type Error struct {
	Kind        ErrorKind
	Status      int
	Code        string
	Message     string
	URL         string
	RequestBody []byte
	Body        []byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notion: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("notion: %s (%d)", e.Kind, e.Status)
}

// Is reports whether target names this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && e.Kind == k
}

// ContentError reports a response body that is not valid JSON, regardless
// of the HTTP status. Usually a sign the base URL does not point at a
// Notion API server.
type ContentError struct {
	Status      int
	URL         string
	RequestBody []byte
	Body        []byte
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("notion: server returned invalid (non-JSON) data from %s (status %d)", e.URL, e.Status)
}
