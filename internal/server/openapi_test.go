package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadAPIDoc loads and validates api/openapi.yaml.
func loadAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(filepath.Join("..", "..", "api", "openapi.yaml"))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

// The OpenAPI document must describe every route the server registers.
func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	doc := loadAPIDoc(t)

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/plans"},
		{"POST", "/api/plans"},
		{"GET", "/api/plans/{id}"},
		{"GET", "/api/plans/{id}/progress"},
		{"POST", "/api/webhook"},
		{"GET", "/api/webhook/health"},
		{"GET", "/health/live"},
		{"GET", "/health/ready"},
	}

	for _, route := range routes {
		item := doc.Paths.Find(route.path)
		require.NotNil(t, item, "path %s missing from OpenAPI document", route.path)

		switch route.method {
		case "GET":
			assert.NotNil(t, item.Get, "GET %s missing", route.path)
		case "POST":
			assert.NotNil(t, item.Post, "POST %s missing", route.path)
		}
	}
}

func TestOpenAPIStatusEnum(t *testing.T) {
	doc := loadAPIDoc(t)

	status := doc.Components.Schemas["Status"]
	require.NotNil(t, status)
	require.NotNil(t, status.Value)

	var values []string
	for _, v := range status.Value.Enum {
		values = append(values, v.(string))
	}
	assert.ElementsMatch(t,
		[]string{"todo", "in_progress", "completed", "blocked", "cancelled"}, values)
}
