package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meridian-lms/meridian-lms/internal/escalation"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Decision outcomes recorded on every authorization call.
const (
	DecisionGrant = "grant"
	DecisionDeny  = "deny"
)

// MaskingLevel tells a consumer how much of a sensitive resource to render.
type MaskingLevel string

const (
	MaskingFull   MaskingLevel = "full"
	MaskingMasked MaskingLevel = "masked"
	MaskingHidden MaskingLevel = "hidden"
)

// Event is the structured record emitted to the audit sink on every decision.
type Event struct {
	UserID        int64     `json:"user_id"`
	Right         string    `json:"right"`
	DepartmentIDs []int64   `json:"department_ids"`
	Decision      string    `json:"decision"`
	Escalated     bool      `json:"escalated"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink receives decision events. Persistence failures must not fail the
// decision, so Record returns nothing.
type Sink interface {
	Record(ctx context.Context, evt Event)
}

// Metrics counts decision outcomes.
type Metrics interface {
	AuthzDecision(outcome string, escalated bool)
}

// RoleResolver expands role names into concrete rights for one kind.
type RoleResolver interface {
	Combine(ctx context.Context, kind shared.PrincipalKind, names ...string) (rights.Set, error)
}

// Hierarchy answers department scoping queries.
type Hierarchy interface {
	DepartmentIDsForQuery(ctx context.Context, memberDeptIDs []int64) ([]int64, error)
	HasHierarchicalAccess(ctx context.Context, memberDeptIDs []int64, target int64) (bool, error)
}

// SensitivityCatalog lists the rights carrying a sensitivity category.
type SensitivityCatalog interface {
	SensitiveRights(ctx context.Context, category string) (rights.Set, error)
}

// EscalationChecker validates escalation sessions and loads admin records.
type EscalationChecker interface {
	IsEscalated(ctx context.Context, token string) (escalation.Session, bool, error)
	Record(ctx context.Context, userID int64) (*escalation.Record, error)
}

// Engine is the authorization decision core. It is a pure query layer: it
// holds no request state, and every decision is recomputed from the
// principal's memberships, the role registry and the department tree.
type Engine struct {
	roles       RoleResolver
	hierarchy   Hierarchy
	sensitivity SensitivityCatalog
	escalation  EscalationChecker
	sink        Sink
	metrics     Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewEngine(roles RoleResolver, hierarchy Hierarchy, sensitivity SensitivityCatalog, esc EscalationChecker, sink Sink, metrics Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		roles:       roles,
		hierarchy:   hierarchy,
		sensitivity: sensitivity,
		escalation:  esc,
		sink:        sink,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// ResolveRights expands the principal's active memberships into the union of
// their rights. Memberships carrying pre-expanded rights are taken as-is;
// the rest go through the role registry. Unknown or inactive roles simply
// contribute nothing.
func (e *Engine) ResolveRights(ctx context.Context, p Principal) (rights.Set, error) {
	out := rights.NewSet()
	for _, m := range p.Memberships {
		if !m.IsActive {
			continue
		}
		if len(m.Rights) > 0 {
			out = out.Union(m.Rights)
			continue
		}
		set, err := e.roles.Combine(ctx, m.Kind, m.Roles...)
		if err != nil {
			return nil, err
		}
		out = out.Union(set)
	}
	return out, nil
}

// Authorize decides whether the principal may exercise the required right in
// its ordinary (non-escalated) context. A deny is an expected outcome, not an
// exception, and carries no hint of which right was missing.
func (e *Engine) Authorize(ctx context.Context, p Principal, required rights.Right) error {
	resolved, err := e.ResolveRights(ctx, p)
	if err != nil {
		return err
	}
	granted := resolved.Grants(required)
	e.emit(ctx, p, required, granted, false)
	if !granted {
		return shared.ErrAuthorizationDenied
	}
	return nil
}

// AuthorizeEscalated decides an operation that requires a live elevated
// session. Rights are drawn only from the master-department memberships on
// the escalation record; the principal's ordinary department rights are not
// merged in. An absent or expired session is an escalation denial, distinct
// from an ordinary deny, so the caller can re-prompt for the secret.
func (e *Engine) AuthorizeEscalated(ctx context.Context, p Principal, required rights.Right) error {
	if !p.HasKind(shared.KindGlobalAdmin) {
		e.emit(ctx, p, required, false, true)
		return shared.ErrEscalationDenied
	}
	sess, ok, err := e.escalation.IsEscalated(ctx, p.EscalationToken)
	if err != nil {
		return err
	}
	if !ok || sess.UserID != p.UserID {
		e.emit(ctx, p, required, false, true)
		return shared.ErrEscalationDenied
	}

	rec, err := e.escalation.Record(ctx, p.UserID)
	if err != nil {
		// A record that vanished after the session check is a denial, not a
		// lookup failure the caller should see.
		if errors.Is(err, shared.ErrNotFound) {
			e.emit(ctx, p, required, false, true)
			return shared.ErrEscalationDenied
		}
		return err
	}
	resolved, err := e.roles.Combine(ctx, shared.KindGlobalAdmin, rec.ActiveMasterRoles()...)
	if err != nil {
		return err
	}
	granted := resolved.Grants(required)
	e.emit(ctx, p, required, granted, true)
	if !granted {
		return shared.ErrAuthorizationDenied
	}
	return nil
}

// ScopeDepartments returns the department-id filter for any list or search
// query run on behalf of the principal: every member department plus all of
// its descendants, deduplicated.
func (e *Engine) ScopeDepartments(ctx context.Context, p Principal) ([]int64, error) {
	return e.hierarchy.DepartmentIDsForQuery(ctx, p.ActiveDepartments())
}

// CanAccessDepartment reports whether the principal's memberships reach the
// target department. Membership in a child never reaches the parent.
func (e *Engine) CanAccessDepartment(ctx context.Context, p Principal, target int64) (bool, error) {
	return e.hierarchy.HasHierarchicalAccess(ctx, p.ActiveDepartments(), target)
}

// MaskingLevel tells a consumer how to render resources guarded by a
// sensitivity category. Holding any right tagged with the category means
// full visibility; holding only the plain view right means the consumer must
// mask identifying fields; holding neither means the resource is omitted.
func (e *Engine) MaskingLevel(ctx context.Context, p Principal, category string, view rights.Right) (MaskingLevel, error) {
	resolved, err := e.ResolveRights(ctx, p)
	if err != nil {
		return MaskingHidden, err
	}
	sensitive, err := e.sensitivity.SensitiveRights(ctx, category)
	if err != nil {
		return MaskingHidden, err
	}
	for _, r := range sensitive.Slice() {
		if resolved.Grants(r) {
			return MaskingFull, nil
		}
	}
	if resolved.Grants(view) {
		return MaskingMasked, nil
	}
	return MaskingHidden, nil
}

func (e *Engine) emit(ctx context.Context, p Principal, required rights.Right, granted bool, escalated bool) {
	outcome := DecisionDeny
	if granted {
		outcome = DecisionGrant
	}
	if e.metrics != nil {
		e.metrics.AuthzDecision(outcome, escalated)
	}
	if e.sink != nil {
		e.sink.Record(ctx, Event{
			UserID:        p.UserID,
			Right:         required.String(),
			DepartmentIDs: p.ActiveDepartments(),
			Decision:      outcome,
			Escalated:     escalated,
			OccurredAt:    e.now(),
		})
	}
	e.logger.Debug("authorization decision",
		slog.Int64("user_id", p.UserID),
		slog.String("right", required.String()),
		slog.String("decision", outcome),
		slog.Bool("escalated", escalated))
}
