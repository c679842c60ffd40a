package service

import (
	"math"
	"testing"

	"forum/internal/models"
	"forum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRules_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rules     listRules
		in        ListInput
		want      repository.ListOptions
		wantParam string
	}{
		{
			name:  "defaults",
			rules: postListRules,
			want:  repository.ListOptions{Page: 1, Limit: 10, Sort: "createdAt", Order: "desc"},
		},
		{
			name:  "replies default ascending",
			rules: replyListRules,
			want:  repository.ListOptions{Page: 1, Limit: 10, Sort: "createdAt", Order: "asc"},
		},
		{
			name:  "explicit values",
			rules: postListRules,
			in:    ListInput{Page: 3, Limit: 100, Sort: "views", Order: "ASC", Query: "  go  "},
			want:  repository.ListOptions{Page: 3, Limit: 100, Sort: "views", Order: "asc", Query: "go"},
		},
		{name: "negative page", rules: postListRules, in: ListInput{Page: -1}, wantParam: "page"},
		{name: "page past cap", rules: postListRules, in: ListInput{Page: MaxPage + 1}, wantParam: "page"},
		{name: "huge page", rules: postListRules, in: ListInput{Page: math.MaxInt}, wantParam: "page"},
		{name: "limit too large", rules: postListRules, in: ListInput{Limit: 101}, wantParam: "limit"},
		{name: "negative limit", rules: postListRules, in: ListInput{Limit: -5}, wantParam: "limit"},
		{name: "unknown sort", rules: commentListRules, in: ListInput{Sort: "views"}, wantParam: "sort"},
		{name: "bad order", rules: postListRules, in: ListInput{Order: "sideways"}, wantParam: "order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.rules.options(tt.in)
			if tt.wantParam != "" {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, models.CodeValidation, appErr.Code)
				assert.Equal(t, tt.wantParam, appErr.Param)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
