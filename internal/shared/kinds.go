package shared

// PrincipalKind distinguishes the three account shapes the platform serves.
type PrincipalKind string

const (
	KindLearner     PrincipalKind = "learner"
	KindStaff       PrincipalKind = "staff"
	KindGlobalAdmin PrincipalKind = "global-admin"
)

// Kinds lists every valid principal kind.
func Kinds() []PrincipalKind {
	return []PrincipalKind{KindLearner, KindStaff, KindGlobalAdmin}
}

// Valid reports whether k is one of the known kinds.
func (k PrincipalKind) Valid() bool {
	switch k {
	case KindLearner, KindStaff, KindGlobalAdmin:
		return true
	}
	return false
}

// DefaultSurface computes the landing surface for a set of held kinds:
// staff when any non-learner kind is present, learner otherwise.
func DefaultSurface(kinds []PrincipalKind) PrincipalKind {
	for _, k := range kinds {
		if k != KindLearner {
			return KindStaff
		}
	}
	return KindLearner
}
