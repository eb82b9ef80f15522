package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

var errNotificationsDisabled = errors.New("link notifications are not enabled")

type LinkService struct {
	repo     ports.LinkRepository
	slugs    ports.SlugService
	notifier ports.LinkNotifier
	now      func() time.Time
}

// NewLinkService wires the link store. notifier may be nil.
func NewLinkService(repo ports.LinkRepository, slugs ports.SlugService, notifier ports.LinkNotifier) *LinkService {
	return &LinkService{repo: repo, slugs: slugs, notifier: notifier, now: time.Now}
}

func (s *LinkService) ListOrdered(ctx context.Context, principalID string) ([]domain.Link, error) {
	return s.repo.ListLinks(ctx, principalID)
}

func (s *LinkService) Count(ctx context.Context, principalID string) (int64, error) {
	return s.repo.CountLinks(ctx, principalID)
}

// Get returns a link only to its owner.
func (s *LinkService) Get(ctx context.Context, principalID, linkID string) (*domain.Link, error) {
	if principalID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return s.owned(ctx, principalID, linkID)
}

func (s *LinkService) Create(ctx context.Context, principalID, title, rawURL string) (*domain.Link, error) {
	if principalID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// Epoch millis sort after any order assigned by Reorder.
	link := &domain.Link{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Title:       title,
		URL:         normalized,
		Order:       now.UnixMilli(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	s.publish(ctx, principalID, domain.LinkCreated, link.ID)
	return link, nil
}

func (s *LinkService) Update(ctx context.Context, principalID, linkID, title, rawURL string) (*domain.Link, error) {
	if principalID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	link, err := s.owned(ctx, principalID, linkID)
	if err != nil {
		return nil, err
	}

	if link.Title, err = domain.NormalizeTitle(title); err != nil {
		return nil, err
	}
	if link.URL, err = domain.NormalizeURL(rawURL); err != nil {
		return nil, err
	}
	link.UpdatedAt = s.now()

	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, err
	}

	s.publish(ctx, principalID, domain.LinkUpdated, link.ID)
	return link, nil
}

func (s *LinkService) Delete(ctx context.Context, principalID, linkID string) error {
	if principalID == "" {
		return domain.ErrNotAuthenticated
	}
	if _, err := s.owned(ctx, principalID, linkID); err != nil {
		return err
	}
	if err := s.repo.DeleteLink(ctx, principalID, linkID); err != nil {
		return err
	}

	s.publish(ctx, principalID, domain.LinkDeleted, linkID)
	return nil
}

// Reorder takes the caller's full desired sequence. Ids that no longer
// exist, belong to someone else, or repeat are dropped; the survivors get
// order = position in the filtered sequence.
func (s *LinkService) Reorder(ctx context.Context, principalID string, linkIDs []string) error {
	if principalID == "" {
		return domain.ErrNotAuthenticated
	}

	seen := make(map[string]struct{}, len(linkIDs))
	valid := make([]string, 0, len(linkIDs))
	for _, id := range linkIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		link, err := s.repo.GetLink(ctx, id)
		if err != nil {
			return err
		}
		if link == nil || link.PrincipalID != principalID {
			continue
		}
		valid = append(valid, id)
	}

	if len(valid) == 0 {
		return nil
	}
	if err := s.repo.SetLinkOrders(ctx, principalID, valid); err != nil {
		return err
	}

	s.publish(ctx, principalID, domain.LinksReordered, "")
	return nil
}

// PublicPage resolves slug and returns the owner's links in display order.
func (s *LinkService) PublicPage(ctx context.Context, slug string) (*domain.PublicPage, error) {
	principalID, err := s.slugs.ResolveSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinks(ctx, principalID)
	if err != nil {
		return nil, err
	}
	display, err := s.slugs.DisplaySlug(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return &domain.PublicPage{
		Slug:        slug,
		PrincipalID: principalID,
		DisplaySlug: display,
		Links:       links,
	}, nil
}

func (s *LinkService) Subscribe(ctx context.Context, principalID string) (<-chan domain.LinkChange, error) {
	if principalID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if s.notifier == nil {
		return nil, errNotificationsDisabled
	}
	return s.notifier.Subscribe(ctx, principalID)
}

func (s *LinkService) owned(ctx context.Context, principalID, linkID string) (*domain.Link, error) {
	link, err := s.repo.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	if link.PrincipalID != principalID {
		return nil, domain.ErrUnauthorized
	}
	return link, nil
}

func (s *LinkService) publish(ctx context.Context, principalID string, kind domain.LinkChangeKind, linkID string) {
	if s.notifier == nil {
		return
	}
	change := domain.LinkChange{PrincipalID: principalID, Kind: kind, LinkID: linkID, At: s.now().UnixMilli()}
	if err := s.notifier.Publish(ctx, change); err != nil {
		slog.Warn("failed to publish link change", "principal_id", principalID, "kind", kind, "error", err)
	}
}

var _ ports.LinkService = (*LinkService)(nil)
