package ports

import (
	"context"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLink(ctx context.Context, id string) (*domain.Link, error) // nil, nil when missing
	UpdateLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, principalID, id string) error
	ListLinks(ctx context.Context, principalID string) ([]domain.Link, error) // ascending order
	CountLinks(ctx context.Context, principalID string) (int64, error)
	// SetLinkOrders writes order = index for each id, scoped to the principal.
	SetLinkOrders(ctx context.Context, principalID string, linkIDs []string) error
	DumpLinks(ctx context.Context) ([]domain.Link, error) // For migration
}

// UsernameRepository defines storage operations for claimed usernames and known principals
type UsernameRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.UsernameRecord, error)
	GetByPrincipal(ctx context.Context, principalID string) (*domain.UsernameRecord, error)
	// UpsertUsername inserts or renames in one statement; returns
	// domain.ErrUsernameTaken when another principal holds the name.
	UpsertUsername(ctx context.Context, record domain.UsernameRecord) error
	DumpUsernames(ctx context.Context) ([]domain.UsernameRecord, error)

	RegisterPrincipal(ctx context.Context, principalID string) error
	PrincipalExists(ctx context.Context, principalID string) (bool, error)
}

// EventSink receives click envelopes. Implementations report delivery
// problems as errors; callers decide whether those matter.
type EventSink interface {
	Send(ctx context.Context, event domain.ClickEvent) error
}

// AnalyticsQuerier runs a named analytics pipe and decodes its data rows into dst.
type AnalyticsQuerier interface {
	Configured() bool
	QueryPipe(ctx context.Context, pipe string, q domain.AnalyticsQuery, dst any) error
}

// LinkNotifier fans out link changes to subscribers of the same principal.
type LinkNotifier interface {
	Publish(ctx context.Context, change domain.LinkChange) error
	// Subscribe delivers changes until ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context, principalID string) (<-chan domain.LinkChange, error)
}

// SlugService resolves public page slugs and manages usernames
type SlugService interface {
	ResolveSlug(ctx context.Context, slug string) (string, error)
	DisplaySlug(ctx context.Context, principalID string) (string, error)
	CheckAvailability(ctx context.Context, candidate string) (domain.Availability, error)
	SetUsername(ctx context.Context, principalID, candidate string) (domain.SetUsernameResult, error)
	RegisterPrincipal(ctx context.Context, principalID string) error
}

// LinkService defines the business logic operations over a principal's links
type LinkService interface {
	ListOrdered(ctx context.Context, principalID string) ([]domain.Link, error)
	Count(ctx context.Context, principalID string) (int64, error)
	Get(ctx context.Context, principalID, linkID string) (*domain.Link, error)
	Create(ctx context.Context, principalID, title, rawURL string) (*domain.Link, error)
	Update(ctx context.Context, principalID, linkID, title, rawURL string) (*domain.Link, error)
	Delete(ctx context.Context, principalID, linkID string) error
	Reorder(ctx context.Context, principalID string, linkIDs []string) error
	PublicPage(ctx context.Context, slug string) (*domain.PublicPage, error)
	Subscribe(ctx context.Context, principalID string) (<-chan domain.LinkChange, error)
}

// ClickService relays click events to the event sink
type ClickService interface {
	Track(ctx context.Context, event domain.ClientEvent, rc domain.RequestContext) error
}

// AnalyticsService builds per-link analytics summaries
type AnalyticsService interface {
	LinkAnalytics(ctx context.Context, principalID, linkID string, daysBack int) domain.LinkAnalytics
}
