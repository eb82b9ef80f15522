package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

const sseKeepAlive = 25 * time.Second

type HTTPHandler struct {
	service   ports.LinkService
	analytics ports.AnalyticsService
}

func NewHTTPHandler(service ports.LinkService, analytics ports.AnalyticsService) *HTTPHandler {
	return &HTTPHandler{service: service, analytics: analytics}
}

// LinkRequest is the create and update payload
type LinkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ReorderRequest carries the full desired sequence of link ids
type ReorderRequest struct {
	LinkIDs []string `json:"link_ids"`
}

// List the caller's links in display order
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListOrdered(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  links,
		"total": len(links),
	})
}

func (h *HTTPHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	link, err := h.service.Create(r.Context(), PrincipalFromContext(r.Context()), req.Title, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Get(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Update Link
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	link, err := h.service.Update(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id"), req.Title, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder applies the submitted order and returns the reconciled list.
func (h *HTTPHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	principal := PrincipalFromContext(r.Context())
	if err := h.service.Reorder(r.Context(), principal, req.LinkIDs); err != nil {
		writeError(w, r, err)
		return
	}

	links, err := h.service.ListOrdered(r.Context(), principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": links})
}

// Analytics for one owned link. Links the caller does not own are a 404.
func (h *HTTPHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	linkID := r.PathValue("id")

	if _, err := h.service.Get(r.Context(), principal, linkID); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			err = domain.ErrNotFound
		}
		writeError(w, r, err)
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	writeJSON(w, http.StatusOK, h.analytics.LinkAnalytics(r.Context(), principal, linkID, days))
}

// Events streams the caller's link changes as server-sent events.
func (h *HTTPHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	changes, err := h.service.Subscribe(ctx, PrincipalFromContext(ctx))
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			writeError(w, r, err)
			return
		}
		slog.Warn("link change stream unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "live updates unavailable"})
		return
	}

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case change, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Kind, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
