// Package service holds the business rules between the HTTP handlers and the repositories.
package service

import (
	"strings"

	"forum/internal/models"
	"forum/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far from integer overflow.
	MaxPage = 100000
)

// ListInput is a raw listing request. Zero Page or Limit selects the default;
// the HTTP layer rejects an explicit zero before it gets here.
type ListInput struct {
	Page  int
	Limit int
	Sort  string
	Order string
	Query string
}

// listRules describes the sort fields a listing accepts and its default order.
type listRules struct {
	sortFields   []string
	defaultOrder string
}

var (
	postListRules    = listRules{sortFields: []string{"createdAt", "updatedAt", "views", "title", "likesCount", "commentsCount"}, defaultOrder: "desc"}
	commentListRules = listRules{sortFields: []string{"createdAt", "updatedAt"}, defaultOrder: "desc"}
	replyListRules   = listRules{sortFields: []string{"createdAt", "updatedAt"}, defaultOrder: "asc"}
	userListRules    = listRules{sortFields: []string{"createdAt", "username"}, defaultOrder: "desc"}
)

// options validates in against the rules and fills in defaults.
func (r listRules) options(in ListInput) (repository.ListOptions, error) {
	opts := repository.ListOptions{
		Page:  in.Page,
		Limit: in.Limit,
		Sort:  in.Sort,
		Order: strings.ToLower(in.Order),
		Query: strings.TrimSpace(in.Query),
	}

	if opts.Page == 0 {
		opts.Page = DefaultPage
	}
	if opts.Page < 1 || opts.Page > MaxPage {
		return opts, models.NewValidationError("page must be between 1 and 100000").WithParam("page")
	}

	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit < 1 || opts.Limit > MaxLimit {
		return opts, models.NewValidationError("limit must be between 1 and 100").WithParam("limit")
	}

	if opts.Sort == "" {
		opts.Sort = "createdAt"
	}
	if !contains(r.sortFields, opts.Sort) {
		return opts, models.NewValidationError("sort must be one of: " + strings.Join(r.sortFields, ", ")).WithParam("sort")
	}

	switch opts.Order {
	case "":
		opts.Order = r.defaultOrder
	case "asc", "desc":
	default:
		return opts, models.NewValidationError("order must be asc or desc").WithParam("order")
	}

	return opts, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func pageOf[T any](items []T, total int64, opts repository.ListOptions) *models.Page[T] {
	p := models.NewPage(items, total, opts.Page, opts.Limit)
	return &p
}
