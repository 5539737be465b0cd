package errors

import "net/http"

// Common errors shared by all surfaces.
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:    http.StatusBadRequest,
		Message: "Bad request",
	})

	// ErrValidationFailed indicates the payload failed validation before any
	// store mutation.
	ErrValidationFailed = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:    http.StatusBadRequest,
		Message: "Validation failed",
	})

	// ErrUnauthorized indicates the request is not authenticated.
	ErrUnauthorized = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryAuth, 0),
		HTTP:    http.StatusUnauthorized,
		Message: "Unauthorized",
	})

	// ErrTokenInvalid indicates an invalid or expired bearer token.
	ErrTokenInvalid = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryAuth, 1),
		HTTP:    http.StatusUnauthorized,
		Message: "Token invalid or expired",
	})

	// ErrPermissionDenied indicates the caller lacks the required permission code.
	ErrPermissionDenied = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryAuthz, 0),
		HTTP:    http.StatusForbidden,
		Message: "Permission denied",
	})

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryNotFound, 0),
		HTTP:    http.StatusNotFound,
		Message: "Resource not found",
	})

	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:    http.StatusInternalServerError,
		Message: "Internal server error",
	})

	// ErrDatabase indicates a storage failure.
	ErrDatabase = Register(&Errno{
		Code:    MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:    http.StatusInternalServerError,
		Message: "Database error",
	})
)

// Config service errors.
var (
	// ErrAppNotFound indicates an unknown application id.
	ErrAppNotFound = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryNotFound, 0),
		HTTP:    http.StatusNotFound,
		Message: "Application not found",
	})

	// ErrAppDisabled indicates the application exists but is disabled.
	ErrAppDisabled = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryAuthz, 0),
		HTTP:    http.StatusForbidden,
		Message: "Application is disabled",
	})

	// ErrAppExists indicates the application id is already registered.
	ErrAppExists = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryConflict, 0),
		HTTP:    http.StatusBadRequest,
		Message: "Application already exists",
	})

	// ErrItemNotFound indicates an unknown config item.
	ErrItemNotFound = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryNotFound, 1),
		HTTP:    http.StatusNotFound,
		Message: "Config item not found",
	})

	// ErrItemExists indicates a duplicate (app, environment, key).
	ErrItemExists = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryConflict, 1),
		HTTP:    http.StatusConflict,
		Message: "Config item already exists for this app, environment and key",
	})

	// ErrVersionConflict indicates a publish batch whose expected versions do
	// not match current state. Details carries the conflicting item ids; the
	// whole batch is rejected and nothing is applied.
	ErrVersionConflict = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryConflict, 2),
		HTTP:    http.StatusConflict,
		Message: "Publish rejected: version conflict",
	})

	// ErrHistoryNotFound indicates an unknown publish history id.
	ErrHistoryNotFound = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryNotFound, 2),
		HTTP:    http.StatusNotFound,
		Message: "Publish history not found",
	})

	// ErrEmptyPublish indicates a publish request naming no items.
	ErrEmptyPublish = Register(&Errno{
		Code:    MakeCode(ServiceConfig, CategoryRequest, 0),
		HTTP:    http.StatusBadRequest,
		Message: "Publish request contains no items",
	})
)
