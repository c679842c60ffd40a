// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"forum/internal/models"

	"gorm.io/gorm"
)

// ListOptions carries validated pagination, ordering and keyword filters.
type ListOptions struct {
	Page  int
	Limit int
	// Sort is an API field name such as "createdAt"; each repository maps it to a column.
	Sort  string
	Order string
	Query string
}

// Offset returns the row offset for the current page.
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// orderBy resolves Sort through the repository's allow-list. Unknown fields fall
// back to created_at; id breaks ties so pages are stable.
func (o ListOptions) orderBy(table string, columns map[string]string) string {
	col, ok := columns[o.Sort]
	if !ok {
		col = table + ".created_at"
	}
	dir := "DESC"
	if strings.EqualFold(o.Order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir + ", " + table + ".id " + dir
}

// likePattern builds a case-insensitive LIKE pattern for keyword search.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND AppError and wraps anything else.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
