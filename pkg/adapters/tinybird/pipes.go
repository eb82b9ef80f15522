package tinybird

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

// PipeClient queries published Tinybird pipes as JSON.
type PipeClient struct {
	client client
}

func NewPipeClient(host, token string, timeout time.Duration) *PipeClient {
	return &PipeClient{client: newClient(host, token, timeout)}
}

func (p *PipeClient) Configured() bool {
	return p.client.configured()
}

type pipeResponse struct {
	Data json.RawMessage `json:"data"`
}

// QueryPipe calls /v0/pipes/{pipe}.json scoped to one link and decodes the
// data array into dst. A missing or null data array leaves dst untouched.
func (p *PipeClient) QueryPipe(ctx context.Context, pipe string, q domain.AnalyticsQuery, dst any) error {
	params := url.Values{}
	params.Set("profileUserId", q.PrincipalID)
	params.Set("linkId", q.LinkID)
	params.Set("days_back", strconv.Itoa(q.DaysBack))

	endpoint := "/v0/pipes/" + url.PathEscape(pipe) + ".json?" + params.Encode()
	resp, err := p.client.do(ctx, "pipe "+pipe, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out pipeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("tinybird pipe %s: decode: %w", pipe, err)
	}
	if len(out.Data) == 0 || string(out.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(out.Data, dst); err != nil {
		return fmt.Errorf("tinybird pipe %s: decode rows: %w", pipe, err)
	}
	return nil
}

var _ ports.AnalyticsQuerier = (*PipeClient)(nil)
