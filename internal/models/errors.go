package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by AppError. Each maps to one HTTP status and one
// client-facing (type, errorCode) pair in errorTable.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidParent      = "INVALID_PARENT"
	CodeHasReplies         = "HAS_REPLIES"
	CodeConflict           = "CONFLICT"
	CodeNotLiked           = "NOT_LIKED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidFileType    = "INVALID_FILE_TYPE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUploadFailed       = "UPLOAD_FAILED"
	CodeDeleteFailed       = "DELETE_FAILED"
	CodeInvalidReference   = "INVALID_REFERENCE"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error types exposed in the error envelope.
const (
	TypeAuthentication = "authentication_error"
	TypePermission     = "permission_error"
	TypeInvalidRequest = "invalid_request_error"
	TypeResource       = "resource_error"
	TypeRateLimit      = "rate_limit_error"
	TypeServer         = "server_error"
)

type errorMapping struct {
	status    int
	errType   string
	errorCode string
}

var errorTable = map[string]errorMapping{
	CodeNotFound:           {http.StatusNotFound, TypeResource, "resource_not_found"},
	CodeInvalidParent:      {http.StatusBadRequest, TypeInvalidRequest, "invalid_parent"},
	CodeHasReplies:         {http.StatusConflict, TypeResource, "resource_has_replies"},
	CodeConflict:           {http.StatusConflict, TypeResource, "resource_already_exists"},
	CodeNotLiked:           {http.StatusBadRequest, TypeInvalidRequest, "operation_not_allowed"},
	CodePermissionDenied:   {http.StatusForbidden, TypePermission, "insufficient_permissions"},
	CodeUnauthorized:       {http.StatusUnauthorized, TypeAuthentication, "invalid_token"},
	CodeValidation:         {http.StatusBadRequest, TypeInvalidRequest, "invalid_parameters"},
	CodeInvalidFileType:    {http.StatusBadRequest, TypeInvalidRequest, "invalid_file_type"},
	CodeFileTooLarge:       {http.StatusBadRequest, TypeInvalidRequest, "file_too_large"},
	CodeUploadFailed:       {http.StatusInternalServerError, TypeServer, "upload_failed"},
	CodeDeleteFailed:       {http.StatusInternalServerError, TypeServer, "delete_failed"},
	CodeInvalidReference:   {http.StatusBadRequest, TypeInvalidRequest, "invalid_reference"},
	CodeBackendUnavailable: {http.StatusServiceUnavailable, TypeServer, "service_unavailable"},
	CodeRateLimited:        {http.StatusTooManyRequests, TypeRateLimit, "too_many_requests"},
	CodeInternal:           {http.StatusInternalServerError, TypeServer, "internal_server_error"},
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Param names the offending request field, if any.
	Param string
	// ErrorCode overrides the default client-facing errorCode for Code.
	ErrorCode string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError target carrying the same Code, so sentinel
// comparisons like errors.Is(err, &AppError{Code: CodeNotFound}) work.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Status returns the HTTP status for the error code.
func (e *AppError) Status() int {
	if m, ok := errorTable[e.Code]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Type returns the client-facing error type.
func (e *AppError) Type() string {
	if m, ok := errorTable[e.Code]; ok {
		return m.errType
	}
	return TypeServer
}

// ClientCode returns the client-facing errorCode.
func (e *AppError) ClientCode() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if m, ok := errorTable[e.Code]; ok {
		return m.errorCode
	}
	return "internal_server_error"
}

// WithParam returns e annotated with the offending request field.
func (e *AppError) WithParam(param string) *AppError {
	e.Param = param
	return e
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewInvalidCredentialsError is returned by login for unknown users and bad passwords alike.
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:      CodeUnauthorized,
		Message:   "Invalid email or password",
		ErrorCode: "invalid_credentials",
	}
}

// NewMissingTokenError is returned when a protected route receives no bearer token.
func NewMissingTokenError() *AppError {
	return &AppError{
		Code:      CodeUnauthorized,
		Message:   "Authorization required",
		ErrorCode: "missing_token",
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInvalidParentError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidParent,
		Message: message,
		Param:   "parentId",
	}
}

func NewHasRepliesError(commentID uint) *AppError {
	return &AppError{
		Code:    CodeHasReplies,
		Message: fmt.Sprintf("Comment %d has replies and cannot be deleted", commentID),
	}
}

func NewNotLikedError(postID uint) *AppError {
	return &AppError{
		Code:    CodeNotLiked,
		Message: fmt.Sprintf("Post %d has not been liked", postID),
	}
}

func NewUploadFailedError(err error) *AppError {
	return &AppError{
		Code:    CodeUploadFailed,
		Message: "File upload failed",
		Err:     err,
	}
}

func NewDeleteFailedError(err error) *AppError {
	return &AppError{
		Code:    CodeDeleteFailed,
		Message: "File delete failed",
		Err:     err,
	}
}

func NewInvalidReferenceError(ref string) *AppError {
	return &AppError{
		Code:    CodeInvalidReference,
		Message: fmt.Sprintf("Unrecognized storage reference %q", ref),
	}
}

func NewBackendUnavailableError(scheme string) *AppError {
	return &AppError{
		Code:    CodeBackendUnavailable,
		Message: fmt.Sprintf("Storage backend %q is not configured", scheme),
	}
}

func NewInvalidFileTypeError(mimetype string) *AppError {
	return &AppError{
		Code:    CodeInvalidFileType,
		Message: fmt.Sprintf("File type %s is not allowed", mimetype),
		Param:   "file",
	}
}

func NewFileTooLargeError(limitMB int) *AppError {
	return &AppError{
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("File exceeds the %dMB limit", limitMB),
		Param:   "file",
	}
}

func NewRateLimitedError() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "Too many requests, please try again later.",
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}
