package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the link routes.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "encode",
		Method:        http.MethodPost,
		Path:          "/encode",
		Summary:       "Shorten a URL",
		Description:   "Returns the canonical short key for the URL, creating it on first use.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, h.Encode)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/links",
		Summary:     "List the caller's links",
		Tags:        []string{"Links"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to the original URL",
		Tags:        []string{"Links"},
	}, h.Redirect)
}
