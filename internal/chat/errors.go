package chat

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrorKind categorizes synthesis failures.
type ErrorKind int

const (
	// KindTransport covers network failures and anything the SDK could not classify.
	KindTransport ErrorKind = iota
	// KindCredential means no API key was available; no request was sent.
	KindCredential
	// KindAPI means the Gemini API rejected the request.
	KindAPI
	// KindEmptyResponse means the call succeeded but carried no image part.
	KindEmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindCredential:
		return "credential"
	case KindAPI:
		return "api"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every failing synthesis call.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewCredentialError reports that no API key could be resolved.
func NewCredentialError(cause error) *Error {
	if cause == nil {
		return &Error{Kind: KindCredential, Message: "credential error: no API key provided"}
	}
	return &Error{Kind: KindCredential, Message: "credential error", Err: cause}
}

// IsKind reports whether err is a synthesis Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// APIStatus returns the HTTP status of a Gemini API error in err's chain.
func APIStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// classifyCallError wraps an SDK error as an API or transport failure.
func classifyCallError(err error) *Error {
	if code, ok := APIStatus(err); ok {
		return &Error{Kind: KindAPI, Message: fmt.Sprintf("Gemini API error %d", code), Err: err}
	}
	return &Error{Kind: KindTransport, Message: "Gemini request failed", Err: err}
}
