package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

var routeParam = regexp.MustCompile(`:(\w+)`)

// Every API route the app serves must appear in the Swagger document.
func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	e := newTestEnv(t)
	checked := 0
	for _, route := range e.app.GetRoutes(true) {
		if route.Method == http.MethodHead || !strings.HasPrefix(route.Path, "/api/") {
			continue
		}
		if strings.HasPrefix(route.Path, "/api/swagger") || strings.HasPrefix(route.Path, "/api/metrics") {
			continue
		}
		p := strings.TrimSuffix(strings.TrimPrefix(route.Path, "/api"), "/")
		p = routeParam.ReplaceAllString(p, "{$1}")

		methods, ok := doc.Paths[p]
		if assert.True(t, ok, "undocumented path %s", p) {
			_, ok = methods[strings.ToLower(route.Method)]
			assert.True(t, ok, "undocumented %s %s", route.Method, p)
		}
		checked++
	}
	assert.GreaterOrEqual(t, checked, 29)
}
