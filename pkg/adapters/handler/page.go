package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

// PageHandler serves public pages and username management.
type PageHandler struct {
	links  ports.LinkService
	slugs  ports.SlugService
	appURL string
}

func NewPageHandler(links ports.LinkService, slugs ports.SlugService, appURL string) *PageHandler {
	return &PageHandler{links: links, slugs: slugs, appURL: appURL}
}

type setUsernameRequest struct {
	Username string `json:"username"`
}

func (h *PageHandler) GetPublicPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.links.PublicPage(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PageHandler) ResolveSlug(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.slugs.ResolveSlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"principal_id": principalID})
}

func (h *PageHandler) Availability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.slugs.CheckAvailability(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

// GetMyUsername returns the slug and public URL the dashboard should show.
func (h *PageHandler) GetMyUsername(w http.ResponseWriter, r *http.Request) {
	slug, err := h.slugs.DisplaySlug(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"slug": slug,
		"url":  h.appURL + "/u/" + slug,
	})
}

func (h *PageHandler) SetMyUsername(w http.ResponseWriter, r *http.Request) {
	var req setUsernameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.slugs.SetUsername(r.Context(), PrincipalFromContext(r.Context()), req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
