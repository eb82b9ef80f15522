package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

type ClickService struct {
	slugs ports.SlugService
	sink  ports.EventSink
	now   func() time.Time
}

func NewClickService(slugs ports.SlugService, sink ports.EventSink) *ClickService {
	return &ClickService{slugs: slugs, sink: sink, now: time.Now}
}

// Track enriches a client click with server-observed context and hands it to
// the sink. Only bad input or an unknown profile fails the call; sink
// problems are logged and swallowed.
func (s *ClickService) Track(ctx context.Context, ev domain.ClientEvent, rc domain.RequestContext) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	principalID, err := s.slugs.ResolveSlug(ctx, ev.ProfileUsername)
	if err != nil {
		return err
	}

	event := domain.ClickEvent{
		Timestamp:       s.now().UTC().Format(time.RFC3339Nano),
		ProfileUsername: ev.ProfileUsername,
		ProfileUserID:   principalID,
		LinkID:          ev.LinkID,
		LinkTitle:       ev.LinkTitle,
		LinkURL:         ev.LinkURL,
		UserAgent:       firstNonEmpty(ev.UserAgent, rc.UserAgent, "unknown"),
		Referrer:        firstNonEmpty(ev.Referrer, rc.Referrer, "direct"),
		Location:        rc.Geo,
	}

	if s.sink == nil {
		slog.Info("click tracked without sink", "profile_user_id", principalID, "link_id", ev.LinkID)
		return nil
	}
	if err := s.sink.Send(ctx, event); err != nil {
		slog.Error("failed to forward click event",
			"profile_user_id", principalID,
			"link_id", ev.LinkID,
			"error", err,
		)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ ports.ClickService = (*ClickService)(nil)
