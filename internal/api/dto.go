package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/xo/internal/siteservice"
)

// RebuildRequest is the optional body of POST /rebuild. An empty list
// rebuilds the whole site.
type RebuildRequest struct {
	Paths []string `json:"paths"`
}

var mdSuffix = validation.NewStringRule(func(s string) bool {
	return strings.HasSuffix(s, ".md")
}, "must be a .md document")

// Validate validates the rebuild request.
func (r RebuildRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Paths, validation.Each(validation.Required, mdSuffix)),
	)
}

// GraphResponse lists the documents or resources related to one path.
type GraphResponse struct {
	Path  string   `json:"path"`
	Items []string `json:"items"`
}

// DocumentsResponse lists every tracked document.
type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

// StatusResponse is the pipeline status (aliased from the service layer).
type StatusResponse = siteservice.Status

// RebuildResponse is a rebuild summary (aliased from the service layer).
type RebuildResponse = siteservice.Summary
