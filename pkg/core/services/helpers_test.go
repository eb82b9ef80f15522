package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

func newTestRepo(t *testing.T) *sqlstore.Repository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := sqlstore.New("file:svc_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// fakeSink records every event and fails with err when set.
type fakeSink struct {
	mu     sync.Mutex
	events []domain.ClickEvent
	err    error
}

func (f *fakeSink) Send(_ context.Context, event domain.ClickEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeSink) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func linkIDs(links []domain.Link) string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.ID
	}
	return strings.Join(out, ",")
}
