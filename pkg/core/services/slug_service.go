package services

import (
	"context"
	"errors"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

type SlugService struct {
	usernames ports.UsernameRepository
	links     ports.LinkRepository
}

func NewSlugService(usernames ports.UsernameRepository, links ports.LinkRepository) *SlugService {
	return &SlugService{usernames: usernames, links: links}
}

// ResolveSlug maps a public slug to a principal id. A slug that is not a
// claimed username is accepted as a raw principal id when that principal has
// signed in at least once or owns a link.
func (s *SlugService) ResolveSlug(ctx context.Context, slug string) (string, error) {
	if slug == "" {
		return "", domain.ErrSlugNotFound
	}

	rec, err := s.usernames.GetByUsername(ctx, slug)
	if err != nil {
		return "", err
	}
	if rec != nil {
		return rec.PrincipalID, nil
	}

	known, err := s.usernames.PrincipalExists(ctx, slug)
	if err != nil {
		return "", err
	}
	if known {
		return slug, nil
	}

	count, err := s.links.CountLinks(ctx, slug)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return slug, nil
	}
	return "", domain.ErrSlugNotFound
}

// DisplaySlug returns the claimed username, or the principal id itself.
func (s *SlugService) DisplaySlug(ctx context.Context, principalID string) (string, error) {
	rec, err := s.usernames.GetByPrincipal(ctx, principalID)
	if err != nil {
		return "", err
	}
	if rec != nil {
		return rec.Username, nil
	}
	return principalID, nil
}

func (s *SlugService) CheckAvailability(ctx context.Context, candidate string) (domain.Availability, error) {
	if err := domain.ValidateUsername(candidate); err != nil {
		return domain.Availability{Available: false, Error: reasonOf(err)}, nil
	}

	rec, err := s.usernames.GetByUsername(ctx, candidate)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{Available: rec == nil}, nil
}

// SetUsername claims candidate for the principal, renaming any previous
// claim. There is no pre-check: the store's unique index settles races.
func (s *SlugService) SetUsername(ctx context.Context, principalID, candidate string) (domain.SetUsernameResult, error) {
	if principalID == "" {
		return domain.SetUsernameResult{}, domain.ErrNotAuthenticated
	}
	if err := domain.ValidateUsername(candidate); err != nil {
		return domain.SetUsernameResult{Success: false, Error: reasonOf(err)}, nil
	}

	err := s.usernames.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: principalID, Username: candidate})
	if errors.Is(err, domain.ErrUsernameTaken) {
		return domain.SetUsernameResult{Success: false, Error: "Username is unavailable"}, nil
	}
	if err != nil {
		return domain.SetUsernameResult{}, err
	}
	return domain.SetUsernameResult{Success: true}, nil
}

func (s *SlugService) RegisterPrincipal(ctx context.Context, principalID string) error {
	if principalID == "" {
		return domain.ErrNotAuthenticated
	}
	return s.usernames.RegisterPrincipal(ctx, principalID)
}

func reasonOf(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

var _ ports.SlugService = (*SlugService)(nil)
