package tinybird

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

const DefaultDatasource = "link_clicks"

// EventSink appends click events to a Tinybird datasource.
type EventSink struct {
	client     client
	datasource string
}

func NewEventSink(host, token string, timeout time.Duration) *EventSink {
	return &EventSink{client: newClient(host, token, timeout), datasource: DefaultDatasource}
}

type ingestResponse struct {
	SuccessfulRows  int64 `json:"successful_rows"`
	QuarantinedRows int64 `json:"quarantined_rows"`
}

// Send posts one event. Quarantined rows are logged as a warning and do not
// count as a failure.
func (s *EventSink) Send(ctx context.Context, event domain.ClickEvent) error {
	if !s.client.configured() {
		slog.Info("event sink not configured - event logged only",
			"profile_user_id", event.ProfileUserID,
			"link_id", event.LinkID,
		)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}

	endpoint := "/v0/events?name=" + url.QueryEscape(s.datasource)
	resp, err := s.client.do(ctx, "events", http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Accepted; the body is informational.
		slog.Warn("event sink returned an unreadable body", "error", err)
		return nil
	}
	if result.QuarantinedRows > 0 {
		slog.Warn("event sink quarantined rows",
			"datasource", s.datasource,
			"quarantined_rows", result.QuarantinedRows,
			"successful_rows", result.SuccessfulRows,
		)
	}
	return nil
}

var _ ports.EventSink = (*EventSink)(nil)
