package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

type TrackHandler struct {
	service ports.ClickService
}

func NewTrackHandler(service ports.ClickService) *TrackHandler {
	return &TrackHandler{service: service}
}

// Track accepts a click from a public page. The answer means "accepted for
// delivery"; sink outages still return success.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	var ev domain.ClientEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	rc := domain.RequestContext{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		Geo:       geoFromRequest(r),
	}

	err := h.service.Track(r.Context(), ev, rc)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, domain.ErrSlugNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Profile not found."})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Reason, Field: verr.Field})
	default:
		slog.Error("error tracking click", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to track click."})
	}
}

// geoFromRequest reads the geolocation headers set by the edge (Vercel
// first, Cloudflare as fallback).
func geoFromRequest(r *http.Request) domain.Geo {
	h := r.Header
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := h.Get(k); v != "" {
				// Vercel percent-encodes city names.
				if decoded, err := url.PathUnescape(v); err == nil {
					return decoded
				}
				return v
			}
		}
		return ""
	}

	return domain.Geo{
		Country:   pick("X-Vercel-IP-Country", "CF-IPCountry"),
		Region:    pick("X-Vercel-IP-Country-Region", "CF-Region-Code"),
		City:      pick("X-Vercel-IP-City", "CF-IPCity"),
		Latitude:  pick("X-Vercel-IP-Latitude", "CF-IPLatitude"),
		Longitude: pick("X-Vercel-IP-Longitude", "CF-IPLongitude"),
	}
}
