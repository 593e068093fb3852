package web

import (
	"log/slog"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"
)

// OpenAPI 3 document types, limited to the fields this API uses.

type openAPIDoc struct {
	OpenAPI    string                          `json:"openapi" yaml:"openapi"`
	Info       openAPIInfo                     `json:"info" yaml:"info"`
	Tags       []openAPITag                    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Paths      map[string]map[string]apiOp     `json:"paths" yaml:"paths"`
	Components map[string]map[string]apiSchema `json:"components,omitempty" yaml:"components,omitempty"`
}

type openAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type openAPITag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type apiOp struct {
	Tags        []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string                 `json:"summary" yaml:"summary"`
	OperationID string                 `json:"operationId" yaml:"operationId"`
	Parameters  []apiParam             `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses   map[string]apiResponse `json:"responses" yaml:"responses"`
}

type apiParam struct {
	Name        string    `json:"name" yaml:"name"`
	In          string    `json:"in" yaml:"in"`
	Required    bool      `json:"required" yaml:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      apiSchema `json:"schema" yaml:"schema"`
}

type apiResponse struct {
	Description string                  `json:"description" yaml:"description"`
	Content     map[string]apiMediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type apiMediaType struct {
	Schema apiSchema `json:"schema" yaml:"schema"`
}

type apiSchema struct {
	Ref        string               `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type       string               `json:"type,omitempty" yaml:"type,omitempty"`
	Format     string               `json:"format,omitempty" yaml:"format,omitempty"`
	Minimum    *int                 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Properties map[string]apiSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
}

var (
	openAPIOnce   sync.Once
	openAPICached openAPIDoc
)

// openAPIDocument returns the API description, built on first use.
func openAPIDocument() openAPIDoc {
	openAPIOnce.Do(func() {
		openAPICached = buildOpenAPIDocument()
	})
	return openAPICached
}

func buildOpenAPIDocument() openAPIDoc {
	one := 1
	errorBody := map[string]apiMediaType{
		"text/plain":       {Schema: apiSchema{Type: "string"}},
		"application/json": {Schema: apiSchema{Ref: "#/components/schemas/ErrorResponse"}},
	}

	return openAPIDoc{
		OpenAPI: "3.0.3",
		Info: openAPIInfo{
			Title:       "N Minimal API",
			Version:     "1.0",
			Description: "API for finding N-th minimal value from files",
		},
		Tags: []openAPITag{
			{Name: "Find N Minimal", Description: "Finds N-th minimal value in local file"},
		},
		Paths: map[string]map[string]apiOp{
			"/api/find-nth-min": {
				"get": {
					Tags:        []string{"Find N Minimal"},
					Summary:     "Gets N minimal value from local file.",
					OperationID: "getNthMinimal",
					Parameters: []apiParam{
						{
							Name:        "fileLink",
							In:          "query",
							Required:    true,
							Description: "Path to a local .xlsx workbook",
							Schema:      apiSchema{Type: "string"},
						},
						{
							Name:        "N",
							In:          "query",
							Required:    true,
							Description: "1-based rank among distinct values",
							Schema:      apiSchema{Type: "integer", Format: "int32", Minimum: &one},
						},
					},
					Responses: map[string]apiResponse{
						"200": {
							Description: "Success",
							Content: map[string]apiMediaType{
								"text/plain":       {Schema: apiSchema{Type: "integer", Format: "int64"}},
								"application/json": {Schema: apiSchema{Ref: "#/components/schemas/FindResponse"}},
							},
						},
						"400": {Description: "Bad request - link is incorrect, or file no found", Content: errorBody},
						"404": {Description: "File link or N are not found", Content: errorBody},
						"503": {Description: "Too many concurrent lookups", Content: errorBody},
						"504": {Description: "Lookup timed out", Content: errorBody},
					},
				},
			},
		},
		Components: map[string]map[string]apiSchema{
			"schemas": {
				"FindResponse": {
					Type: "object",
					Properties: map[string]apiSchema{
						"fileLink": {Type: "string"},
						"n":        {Type: "integer", Format: "int32"},
						"value":    {Type: "integer", Format: "int64"},
					},
				},
				"ErrorResponse": {
					Type: "object",
					Properties: map[string]apiSchema{
						"error":   {Type: "string"},
						"message": {Type: "string"},
						"action":  {Type: "string"},
						"code":    {Type: "string"},
						"kind":    {Type: "string"},
					},
				},
			},
		},
	}
}

func (s *Server) handleOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPIDocument())
}

func (s *Server) handleOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	out, err := yaml.Marshal(openAPIDocument())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(out); err != nil {
		slog.Debug("write openapi yaml", "error", err)
	}
}
