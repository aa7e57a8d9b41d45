package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an analysis failure.
type Kind string

const (
	KindConnection        Kind = "ConnectionError"
	KindTimeout           Kind = "TimeoutError"
	KindAuth              Kind = "AuthError"
	KindForbidden         Kind = "ForbiddenError"
	KindNotFound          Kind = "NotFoundError"
	KindValidation        Kind = "ValidationError"
	KindRateLimit         Kind = "RateLimitError"
	KindServer            Kind = "ServerError"
	KindHTTP              Kind = "GenericHttpError"
	KindMalformedResponse Kind = "MalformedResponseError"
	KindCancelled         Kind = "CancelledError"
)

// Error is the only error type Analyze returns. Message is ready to show
// to an end user and never contains the credential.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int

	repositoryMissing bool
	cause             error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying transport or decode error for logging.
func (e *Error) Unwrap() error {
	return e.cause
}

// RepositoryNotFound reports whether a NotFoundError was attributed to the
// repository rather than to the endpoint path.
func (e *Error) RepositoryNotFound() bool {
	return e.Kind == KindNotFound && e.repositoryMissing
}

// NeedsSettings reports whether the user should revisit the endpoint or
// credential settings to fix this failure.
func (e *Error) NeedsSettings() bool {
	switch e.Kind {
	case KindAuth, KindForbidden, KindConnection:
		return true
	case KindNotFound:
		return !e.repositoryMissing
	}
	return false
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

const (
	msgAuth           = "Unauthorized: Invalid or missing API Key. Please check your settings."
	msgForbidden      = "Forbidden: Access denied. Check your API key permissions."
	msgRepoNotFound   = "Repository not found. Please ensure the URL is correct and public."
	msgPathNotFound   = "Resource not found (404). Check the API Endpoint URL in settings."
	msgInvalidInput   = "Invalid Input: "
	msgInvalidGeneric = "Please check the repository URL format."
	msgRateLimit      = "Rate Limit Exceeded: You are making too many requests. Please wait a moment."
	msgServer         = "Server Error: The backend encountered an issue."
	msgMalformed      = "The analysis service returned an unexpected response shape."
	msgCancelled      = "The analysis was cancelled."
)

func connectionError(endpoint string, cause error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("Connection failed. Ensure the backend is running at %s and is accessible.", endpoint),
		cause:   cause,
	}
}

func timeoutError(endpoint string, cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("The analysis service at %s did not respond within the time limit. Try again or raise the timeout.", endpoint),
		cause:   cause,
	}
}

func cancelledError(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: msgCancelled, cause: cause}
}

func malformedError(status int, cause error) *Error {
	msg := msgMalformed
	var se *shapeError
	if errors.As(cause, &se) {
		msg += " " + capitalize(se.Error()) + "."
	}
	return &Error{Kind: KindMalformedResponse, Message: msg, StatusCode: status, cause: cause}
}

// statusError classifies a non-success response. Server text is stripped
// of the credential before it reaches the message.
func statusError(status int, body []byte, repositoryRef, credential string) *Error {
	d := parseErrorBody(body).redact(credential)
	e := &Error{StatusCode: status}

	switch {
	case status == 401:
		e.Kind, e.Message = KindAuth, msgAuth
	case status == 403:
		e.Kind, e.Message = KindForbidden, msgForbidden
	case status == 404:
		e.Kind = KindNotFound
		if d.mentionsRepository(repositoryRef) {
			e.repositoryMissing = true
			e.Message = msgRepoNotFound
		} else {
			e.Message = msgPathNotFound
		}
	case status == 422:
		e.Kind = KindValidation
		switch {
		case d.isList && len(d.msgs) > 0:
			e.Message = msgInvalidInput + strings.Join(d.msgs, ", ")
		case d.isString:
			e.Message = msgInvalidInput + d.text
		default:
			e.Message = msgInvalidInput + msgInvalidGeneric
		}
	case status == 429:
		e.Kind, e.Message = KindRateLimit, msgRateLimit
	case status >= 500:
		e.Kind, e.Message = KindServer, msgServer
		if d.present() {
			e.Message += " Details: " + preview(d.text)
		}
	default:
		e.Kind = KindHTTP
		switch {
		case d.present():
			e.Message = d.text
		case strings.TrimSpace(d.raw) != "":
			e.Message = "Error: " + preview(d.raw)
		default:
			e.Message = fmt.Sprintf("Analysis failed (%d)", status)
		}
	}
	return e
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
