package forcemock

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getmockd/sfrecord/pkg/httputil"
)

// Error codes returned in API error arrays.
const (
	CodeInvalidSession              = "INVALID_SESSION_ID"
	CodeNotFound                    = "NOT_FOUND"
	CodeInvalidType                 = "INVALID_TYPE"
	CodeInvalidField                = "INVALID_FIELD"
	CodeInvalidFieldForInsertUpdate = "INVALID_FIELD_FOR_INSERT_UPDATE"
	CodeMalformedQuery              = "MALFORMED_QUERY"
	CodeMalformedID                 = "MALFORMED_ID"
	CodeRequiredFieldMissing        = "REQUIRED_FIELD_MISSING"
	CodeEntityIsDeleted             = "ENTITY_IS_DELETED"
	CodeJSONParserError             = "JSON_PARSER_ERROR"
	CodeInvalidQueryLocator         = "INVALID_QUERY_LOCATOR"
	CodeMethodNotAllowed            = "METHOD_NOT_ALLOWED"
	CodeUnknownException            = "UNKNOWN_EXCEPTION"
)

// APIError is an error the server reports as an error array.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code for this error.
func (e *APIError) HTTPStatus() int {
	return e.Status
}

func notFound() *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "The requested resource does not exist"}
}

func entityDeleted(rid string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeEntityIsDeleted, Message: fmt.Sprintf("entity is deleted: %s", rid)}
}

func invalidType(typeName string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidType,
		Message: fmt.Sprintf("sObject type '%s' is not supported. If you are attempting to use a custom object, be sure to append the '__c' after the entity name.", typeName),
	}
}

func invalidField(field, typeName string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidField,
		Message: fmt.Sprintf("No such column '%s' on entity '%s'.", field, typeName),
	}
}

func malformedQuery(err error) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeMalformedQuery, Message: err.Error()}
}

// writeError writes err as an error array. Errors that are not *APIError are
// reported as UNKNOWN_EXCEPTION.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = &APIError{Status: http.StatusInternalServerError, Code: CodeUnknownException, Message: err.Error()}
	}
	httputil.WriteError(w, apiErr.Status, apiErr.Code, apiErr.Message, apiErr.Fields...)
}
