package server

import (
	"strconv"
	"strings"
	"unicode"

	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parseID reads a positive integer route parameter.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param)).WithParam(param)
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parseListInput reads page, limit, sort, order and q. Range checks happen in
// the service; here only non-numeric page and limit are rejected.
func parseListInput(c *fiber.Ctx) (service.ListInput, error) {
	in := service.ListInput{
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
		Query: c.Query("q"),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &in.Page}, {"limit", &in.Limit}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return in, models.NewValidationError(p.name + " must be an integer").WithParam(p.name)
		}
		// Absent means default; an explicit zero is a bad value.
		if n < 1 {
			return in, models.NewValidationError(p.name + " must be at least 1").WithParam(p.name)
		}
		*p.dst = n
	}
	return in, nil
}

// parseBody decodes a JSON request body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
