package force

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for client operations.
var (
	// ErrMissingType is returned when a record without a type name is saved or deleted.
	ErrMissingType = errors.New("record has no type name")
	// ErrMissingIdentity is returned when an operation needs an identity the record does not have.
	ErrMissingIdentity = errors.New("record has no identity")
	// ErrNoRecords is returned by FindOne when a query matches nothing.
	ErrNoRecords = errors.New("query returned no records")
	// ErrMalformedResponse is returned when a response does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteAPIError is a non-success response from the REST API.
type RemoteAPIError struct {
	StatusCode int
	Message    string
	ErrorCode  string
	Fields     []string
}

func (e *RemoteAPIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("api error (%d %s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the HTTP status code of the failed response.
func (e *RemoteAPIError) HTTPStatus() int {
	return e.StatusCode
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *RemoteAPIError) Hint() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "The session is invalid or expired. Log in again to obtain a new access token."
	case e.ErrorCode == "INVALID_FIELD" || e.ErrorCode == "INVALID_TYPE":
		return "Check the spelling of object and field names in the query."
	case e.ErrorCode == "MALFORMED_QUERY":
		return "Check the query syntax."
	case e.StatusCode == http.StatusNotFound:
		return "The record or object does not exist, or it was deleted."
	case len(e.Fields) > 0:
		return "Check the values of: " + strings.Join(e.Fields, ", ")
	}
	return ""
}

// apiErrorItem is one element of the error array returned by the API.
type apiErrorItem struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields"`
}

// newRemoteAPIError builds a RemoteAPIError from a failed response body. The
// message comes from the first element of the error array; bodies that do not
// carry one fall back to the HTTP status text.
func newRemoteAPIError(status int, body []byte) *RemoteAPIError {
	e := &RemoteAPIError{StatusCode: status}

	var items []apiErrorItem
	if err := json.Unmarshal(body, &items); err == nil && len(items) > 0 {
		e.Message = items[0].Message
		e.ErrorCode = items[0].ErrorCode
		e.Fields = items[0].Fields
	} else {
		// Some gateways answer with a single object instead of an array.
		var item apiErrorItem
		if err := json.Unmarshal(body, &item); err == nil {
			e.Message = item.Message
			e.ErrorCode = item.ErrorCode
			e.Fields = item.Fields
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
