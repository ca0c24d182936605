package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

const (
	departmentsCacheKey = "directory:departments"

	// maxDepth bounds every parent-pointer walk. Trees are expected to be
	// tens of levels at most; anything deeper is corrupt data.
	maxDepth = 100
)

// Service maintains the department forest and answers hierarchy queries.
type Service struct {
	repo   Repository
	cache  *cache.RefCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, refCache *cache.RefCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: refCache, logger: logger}
}

// forest is an in-memory snapshot of the department table.
type forest struct {
	byID     map[int64]Department
	children map[int64][]int64
}

func buildForest(depts []Department) *forest {
	f := &forest{
		byID:     make(map[int64]Department, len(depts)),
		children: make(map[int64][]int64),
	}
	for _, d := range depts {
		f.byID[d.ID] = d
		if d.ParentID != nil {
			f.children[*d.ParentID] = append(f.children[*d.ParentID], d.ID)
		}
	}
	return f
}

func (s *Service) snapshot(ctx context.Context) (*forest, error) {
	var depts []Department
	err := s.cache.FetchJSON(ctx, departmentsCacheKey, &depts, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return buildForest(depts), nil
}

// List returns every department.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	var depts []Department
	err := s.cache.FetchJSON(ctx, departmentsCacheKey, &depts, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx)
	})
	return depts, err
}

// Get fetches one department, uncached; callers that require existence use
// this rather than the tolerant hierarchy queries.
func (s *Service) Get(ctx context.Context, id int64) (Department, error) {
	return s.repo.Get(ctx, id)
}

// Master returns the master department singleton.
func (s *Service) Master(ctx context.Context) (Department, error) {
	return s.repo.GetMaster(ctx)
}

// DepartmentAndSubdepartments returns the ids of the department and all of
// its transitive descendants, the department itself included. Unknown ids
// yield an empty result rather than an error.
func (s *Service) DepartmentAndSubdepartments(ctx context.Context, id int64) ([]int64, error) {
	f, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return f.descendants(id), nil
}

func (f *forest) descendants(id int64) []int64 {
	if _, ok := f.byID[id]; !ok {
		return nil
	}
	visited := map[int64]struct{}{id: {}}
	out := []int64{id}
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range f.children[current] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AncestorChain returns the chain from the department up to its root, ordered
// leaf to root, the department itself included. Unknown ids yield an empty
// chain. A parentage cycle aborts the walk with an integrity error.
func (s *Service) AncestorChain(ctx context.Context, id int64) ([]Department, error) {
	f, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return f.ancestorChain(id)
}

func (f *forest) ancestorChain(id int64) ([]Department, error) {
	current, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	visited := make(map[int64]struct{}, maxDepth)
	chain := make([]Department, 0, 8)
	for depth := 0; ; depth++ {
		if _, seen := visited[current.ID]; seen || depth >= maxDepth {
			return nil, fmt.Errorf("%w: department parentage cycle at id %d", shared.ErrIntegrity, current.ID)
		}
		visited[current.ID] = struct{}{}
		chain = append(chain, current)
		if current.ParentID == nil {
			return chain, nil
		}
		parent, ok := f.byID[*current.ParentID]
		if !ok {
			// Dangling parent reference; treat the node as a root.
			return chain, nil
		}
		current = parent
	}
}

// RootOf returns the root ancestor of a department, the department itself
// when it is already a root.
func (s *Service) RootOf(ctx context.Context, id int64) (Department, error) {
	chain, err := s.AncestorChain(ctx, id)
	if err != nil {
		return Department{}, err
	}
	if len(chain) == 0 {
		return Department{}, shared.ErrNotFound
	}
	return chain[len(chain)-1], nil
}

// DepartmentIDsForQuery resolves a principal's membership departments into
// the deduplicated union of their descendant sets. This is the scoping
// filter applied to every list or search query run for that principal.
func (s *Service) DepartmentIDsForQuery(ctx context.Context, memberDeptIDs []int64) ([]int64, error) {
	f, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	var out []int64
	for _, id := range memberDeptIDs {
		for _, got := range f.descendants(id) {
			if _, ok := seen[got]; ok {
				continue
			}
			seen[got] = struct{}{}
			out = append(out, got)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// HasHierarchicalAccess reports whether membership in memberDeptIDs reaches
// target: either directly, or because a membership department is an ancestor
// of target. Membership in a child never grants access to its parent or to
// siblings.
func (s *Service) HasHierarchicalAccess(ctx context.Context, memberDeptIDs []int64, target int64) (bool, error) {
	f, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range memberDeptIDs {
		if id == target {
			return true, nil
		}
	}
	for _, id := range memberDeptIDs {
		for _, got := range f.descendants(id) {
			if got == target {
				return true, nil
			}
		}
	}
	return false, nil
}

// Create validates and inserts a department.
func (s *Service) Create(ctx context.Context, dept Department) (Department, error) {
	dept.Name = strings.TrimSpace(dept.Name)
	dept.Code = strings.TrimSpace(dept.Code)
	if err := s.validate(ctx, dept); err != nil {
		return Department{}, err
	}
	if dept.IsMaster {
		if _, err := s.repo.GetMaster(ctx); err == nil {
			return Department{}, fmt.Errorf("%w: master department already exists", shared.ErrIntegrity)
		}
	}
	created, err := s.repo.Create(ctx, dept)
	if err != nil {
		return Department{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update validates and rewrites a department. Reparenting is checked against
// the existing tree so a cycle can never be written.
func (s *Service) Update(ctx context.Context, dept Department) (Department, error) {
	dept.Name = strings.TrimSpace(dept.Name)
	dept.Code = strings.TrimSpace(dept.Code)
	if _, err := s.repo.Get(ctx, dept.ID); err != nil {
		return Department{}, err
	}
	if err := s.validate(ctx, dept); err != nil {
		return Department{}, err
	}
	if dept.ParentID != nil {
		if err := s.checkReparent(ctx, dept.ID, *dept.ParentID); err != nil {
			return Department{}, err
		}
	}
	updated, err := s.repo.Update(ctx, dept)
	if err != nil {
		return Department{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Deactivate soft-disables a department.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	dept, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if dept.IsMaster {
		return fmt.Errorf("%w: master department cannot be deactivated", shared.ErrIntegrity)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) validate(ctx context.Context, dept Department) error {
	vErr := shared.NewValidationError()
	if dept.Name == "" {
		vErr.Add("name", "department name is required")
	}
	if dept.Code == "" {
		vErr.Add("code", "department code is required")
	}
	if dept.ParentID != nil {
		if *dept.ParentID == dept.ID && dept.ID != 0 {
			return fmt.Errorf("%w: department %d cannot be its own parent", shared.ErrIntegrity, dept.ID)
		}
		if _, err := s.repo.Get(ctx, *dept.ParentID); err != nil {
			vErr.Add("parent_id", fmt.Sprintf("parent department %d does not exist", *dept.ParentID))
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// checkReparent refuses a parent that sits inside the department's own
// subtree, which would introduce a cycle.
func (s *Service) checkReparent(ctx context.Context, id, newParent int64) error {
	subtree, err := s.DepartmentAndSubdepartments(ctx, id)
	if err != nil {
		return err
	}
	for _, got := range subtree {
		if got == newParent {
			return fmt.Errorf("%w: moving department %d under %d creates a cycle", shared.ErrIntegrity, id, newParent)
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, departmentsCacheKey); err != nil && s.logger != nil {
		s.logger.Warn("invalidate departments cache", slog.Any("error", err))
	}
}
