package models

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the body of every API response.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorData is the data field of an error envelope.
type ErrorData struct {
	Type      string `json:"type"`
	ErrorCode string `json:"errorCode"`
	Status    int    `json:"status"`
	Param     string `json:"param,omitempty"`
}

// Page is the data field of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage builds a Page, computing totalPages from total and limit.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// RespondWithData writes a success envelope.
func RespondWithData(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Code:    "success",
		Message: message,
		Data:    data,
	})
}

// RespondWithError writes an error envelope. A non-zero status overrides the
// status derived from the error code; pass 0 to use the code's mapping.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}
	if status == 0 {
		status = appErr.Status()
	}

	message := appErr.Message
	if appErr.Code == CodeInternal {
		message = "Internal server error"
	}

	return c.Status(status).JSON(Envelope{
		Code:    "error",
		Message: message,
		Data: ErrorData{
			Type:      appErr.Type(),
			ErrorCode: appErr.ClientCode(),
			Status:    status,
			Param:     appErr.Param,
		},
	})
}

// RespondWithAppError writes an error envelope using the status mapped from the error code.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, 0, err)
}
