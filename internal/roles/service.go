package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

const definitionsCacheKey = "roles:definitions"

// Catalog is the subset of the rights registry the role service needs to
// validate right references.
type Catalog interface {
	ActiveByID(ctx context.Context) (map[string]rights.AccessRight, error)
}

// Service maintains role definitions and expands role names into rights.
type Service struct {
	repo    Repository
	catalog Catalog
	cache   *cache.RefCache
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, catalog Catalog, refCache *cache.RefCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, cache: refCache, logger: logger}
}

// Definitions returns every role definition, cached.
func (s *Service) Definitions(ctx context.Context) ([]Definition, error) {
	var out []Definition
	err := s.cache.FetchJSON(ctx, definitionsCacheKey, &out, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx)
	})
	return out, err
}

// ByKind returns the definitions valid for one principal kind.
func (s *Service) ByKind(ctx context.Context, kind shared.PrincipalKind) ([]Definition, error) {
	defs, err := s.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if def.Kind == kind {
			out = append(out, def)
		}
	}
	return out, nil
}

// Get fetches one definition by role name.
func (s *Service) Get(ctx context.Context, name string) (Definition, error) {
	return s.repo.Get(ctx, name)
}

// Combine expands a set of role names scoped to one principal kind into the
// deduplicated union of their access rights. Unknown or inactive role names
// contribute no rights and raise no error here; membership validation is the
// place that rejects them. Input order never affects the result.
func (s *Service) Combine(ctx context.Context, kind shared.PrincipalKind, names ...string) (rights.Set, error) {
	defs, err := s.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if def.IsActive && def.Kind == kind {
			byName[def.Name] = def
		}
	}

	combined := rights.NewSet()
	for _, name := range names {
		def, ok := byName[name]
		if !ok {
			continue
		}
		for _, id := range def.RightIDs {
			parsed, err := rights.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("roles: corrupt right %q on role %q: %w", id, name, err)
			}
			combined.Add(parsed)
		}
	}
	return combined, nil
}

// ValidateNames checks that every role name exists, is active and belongs to
// the given principal kind. Returns a field-level error list on failure.
func (s *Service) ValidateNames(ctx context.Context, kind shared.PrincipalKind, names []string) error {
	if len(names) == 0 {
		return shared.NewValidationError(shared.FieldError{Field: "roles", Message: "at least one role is required"})
	}
	defs, err := s.Definitions(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	vErr := shared.NewValidationError()
	for _, name := range names {
		def, ok := byName[name]
		switch {
		case !ok:
			vErr.Add("roles", fmt.Sprintf("unknown role %q", name))
		case !def.IsActive:
			vErr.Add("roles", fmt.Sprintf("role %q is inactive", name))
		case def.Kind != kind:
			vErr.Add("roles", fmt.Sprintf("role %q is not valid for %s accounts", name, kind))
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// Create validates and inserts a role definition.
func (s *Service) Create(ctx context.Context, def Definition) (Definition, error) {
	if err := s.validateDefinition(ctx, def); err != nil {
		return Definition{}, err
	}
	created, err := s.repo.Create(ctx, def)
	if err != nil {
		return Definition{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update validates and rewrites a role definition. The principal kind of an
// existing role never changes; role names belong to exactly one kind.
func (s *Service) Update(ctx context.Context, def Definition) (Definition, error) {
	current, err := s.repo.Get(ctx, def.Name)
	if err != nil {
		return Definition{}, err
	}
	def.Kind = current.Kind
	if err := s.validateDefinition(ctx, def); err != nil {
		return Definition{}, err
	}
	updated, err := s.repo.Update(ctx, def)
	if err != nil {
		return Definition{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Deactivate soft-disables a role definition.
func (s *Service) Deactivate(ctx context.Context, name string) error {
	if err := s.repo.SetActive(ctx, name, false); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Seed installs the built-in definitions, skipping roles that already exist.
func (s *Service) Seed(ctx context.Context) error {
	for _, def := range SeedDefinitions() {
		if _, err := s.repo.Create(ctx, def); err != nil {
			if errors.Is(err, shared.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("roles: seed %q: %w", def.Name, err)
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) validateDefinition(ctx context.Context, def Definition) error {
	vErr := shared.NewValidationError()
	if def.Name == "" {
		vErr.Add("name", "role name is required")
	}
	if !def.Kind.Valid() {
		vErr.Add("kind", fmt.Sprintf("unknown principal kind %q", def.Kind))
	}
	if len(def.RightIDs) == 0 {
		vErr.Add("right_ids", "a role requires at least one access right")
	}

	known, err := s.catalog.ActiveByID(ctx)
	if err != nil {
		return err
	}
	for _, id := range def.RightIDs {
		parsed, err := rights.Parse(id)
		if err != nil {
			vErr.Add("right_ids", err.Error())
			continue
		}
		// A valid wildcard covers every concrete right under its domain and
		// needs no catalog entry of its own. Concrete rights must be
		// cataloged: a typo in a concrete id should fail here, not silently
		// grant nothing.
		if parsed.IsWildcard() {
			continue
		}
		if _, ok := known[parsed.String()]; !ok {
			vErr.Add("right_ids", fmt.Sprintf("right %q is not in the catalog", parsed.String()))
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, definitionsCacheKey); err != nil && s.logger != nil {
		s.logger.Warn("invalidate roles cache", slog.Any("error", err))
	}
}
