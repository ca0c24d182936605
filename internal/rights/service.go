package rights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

const catalogCacheKey = "rights:catalog"

// Service maintains the access right catalog and answers lookups through a
// short-TTL read-through cache. Stale entries are tolerated by contract.
type Service struct {
	repo   Repository
	cache  *cache.RefCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, refCache *cache.RefCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: refCache, logger: logger}
}

// Catalog returns every catalog entry, cached.
func (s *Service) Catalog(ctx context.Context) ([]AccessRight, error) {
	var out []AccessRight
	err := s.cache.FetchJSON(ctx, catalogCacheKey, &out, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx)
	})
	return out, err
}

// Get fetches one catalog entry by identifier, bypassing the cache.
func (s *Service) Get(ctx context.Context, id string) (AccessRight, error) {
	parsed, err := Parse(id)
	if err != nil {
		return AccessRight{}, shared.NewValidationError(shared.FieldError{Field: "id", Message: err.Error()})
	}
	return s.repo.Get(ctx, parsed.String())
}

// Create validates and inserts a catalog entry. The identifier is normalized
// to its canonical lowercase form before persistence.
func (s *Service) Create(ctx context.Context, right AccessRight) (AccessRight, error) {
	parsed, vErr := validateRight(&right)
	if vErr.HasErrors() {
		return AccessRight{}, vErr
	}
	right.ID = parsed.String()
	right.Domain = parsed.Domain
	right.Resource = parsed.Resource
	right.Action = parsed.Action

	created, err := s.repo.Create(ctx, right)
	if err != nil {
		return AccessRight{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update rewrites description, sensitivity and active flag. The structured
// identifier itself is immutable once granted to a role.
func (s *Service) Update(ctx context.Context, right AccessRight) (AccessRight, error) {
	parsed, err := Parse(right.ID)
	if err != nil {
		return AccessRight{}, shared.NewValidationError(shared.FieldError{Field: "id", Message: err.Error()})
	}
	if right.Sensitive && !ValidSensitivityCategory(right.SensitivityCategory) {
		return AccessRight{}, shared.NewValidationError(shared.FieldError{Field: "sensitivity_category", Message: "unknown sensitivity category"})
	}
	right.ID = parsed.String()
	updated, err := s.repo.Update(ctx, right)
	if err != nil {
		return AccessRight{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Deactivate soft-disables a catalog entry.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	parsed, err := Parse(id)
	if err != nil {
		return shared.NewValidationError(shared.FieldError{Field: "id", Message: err.Error()})
	}
	if err := s.repo.SetActive(ctx, parsed.String(), false); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ActiveByID returns the active catalog keyed by identifier, cached.
func (s *Service) ActiveByID(ctx context.Context) (map[string]AccessRight, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]AccessRight, len(catalog))
	for _, right := range catalog {
		if right.IsActive {
			out[right.ID] = right
		}
	}
	return out, nil
}

// SensitiveRights returns the identifiers of active rights carrying the given
// sensitivity category. The masking policy checks resolved rights against it.
func (s *Service) SensitiveRights(ctx context.Context, category string) (Set, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	set := NewSet()
	for _, entry := range catalog {
		if !entry.IsActive || !entry.Sensitive || entry.SensitivityCategory != category {
			continue
		}
		parsed, err := entry.Right()
		if err != nil {
			return nil, fmt.Errorf("rights: corrupt catalog entry %q: %w", entry.ID, err)
		}
		set.Add(parsed)
	}
	return set, nil
}

// Seed installs the built-in catalog, skipping entries that already exist.
func (s *Service) Seed(ctx context.Context) error {
	for _, entry := range SeedCatalog() {
		if _, err := s.repo.Create(ctx, entry); err != nil {
			if errors.Is(err, shared.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("rights: seed %q: %w", entry.ID, err)
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, catalogCacheKey); err != nil && s.logger != nil {
		s.logger.Warn("invalidate rights cache", slog.Any("error", err))
	}
}

func validateRight(right *AccessRight) (Right, *shared.ValidationError) {
	vErr := shared.NewValidationError()
	parsed, err := Parse(right.ID)
	if err != nil {
		vErr.Add("id", err.Error())
		return Right{}, vErr
	}
	if !ValidDomain(parsed.Domain) {
		vErr.Add("domain", fmt.Sprintf("unknown domain %q", parsed.Domain))
	}
	if right.Sensitive && !ValidSensitivityCategory(right.SensitivityCategory) {
		vErr.Add("sensitivity_category", "unknown sensitivity category")
	}
	if !right.Sensitive && right.SensitivityCategory != "" {
		vErr.Add("sensitivity_category", "category set on a non-sensitive right")
	}
	return parsed, vErr
}
