package rights

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Right is an access right parsed from its wire identifier. The wire grammar
// is part of the compatibility surface: "domain:resource:action" for a
// concrete right, "domain:*" for a domain wildcard. "system:*" grants
// everything. Parsing happens once at the boundary; the matcher never does
// string work.
type Right struct {
	Domain   string
	Resource string
	Action   string
	wildcard bool
}

const wildcardSegment = "*"

var lowerCaser = cases.Fold()

// Parse converts a wire identifier into a Right. Identifiers are folded to
// lower case before parsing. Only the documented wildcard form is accepted:
// a "*" anywhere other than the sole second segment is an error.
func Parse(identifier string) (Right, error) {
	id := lowerCaser.String(strings.TrimSpace(identifier))
	if id == "" {
		return Right{}, fmt.Errorf("rights: empty identifier")
	}
	parts := strings.Split(id, ":")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[0] == wildcardSegment {
			return Right{}, fmt.Errorf("rights: invalid domain in %q", identifier)
		}
		if parts[1] != wildcardSegment {
			return Right{}, fmt.Errorf("rights: %q must be domain:resource:action or domain:*", identifier)
		}
		return Right{Domain: parts[0], Resource: wildcardSegment, Action: wildcardSegment, wildcard: true}, nil
	case 3:
		for i, p := range parts {
			if p == "" || p == wildcardSegment {
				return Right{}, fmt.Errorf("rights: invalid segment %d in %q", i, identifier)
			}
		}
		return Right{Domain: parts[0], Resource: parts[1], Action: parts[2]}, nil
	default:
		return Right{}, fmt.Errorf("rights: %q must be domain:resource:action or domain:*", identifier)
	}
}

// MustParse is Parse for statically known identifiers; it panics on error.
func MustParse(identifier string) Right {
	r, err := Parse(identifier)
	if err != nil {
		panic(err)
	}
	return r
}

// IsWildcard reports whether the right is a domain wildcard.
func (r Right) IsWildcard() bool { return r.wildcard }

// String reproduces the wire identifier bit-exact.
func (r Right) String() string {
	if r.wildcard {
		return r.Domain + ":*"
	}
	return r.Domain + ":" + r.Resource + ":" + r.Action
}

// Grants reports whether the holder right r authorizes required. Pure,
// side-effect free. A required right that is itself a wildcard is never
// matched; wildcards only carry meaning on the holder side.
func (r Right) Grants(required Right) bool {
	if required.wildcard {
		return false
	}
	if r.wildcard {
		if r.Domain == DomainSystem {
			return true
		}
		return r.Domain == required.Domain
	}
	return r.Domain == required.Domain && r.Resource == required.Resource && r.Action == required.Action
}

// Matches reports whether any right in held authorizes required.
func Matches(held []Right, required Right) bool {
	for _, h := range held {
		if h.Grants(required) {
			return true
		}
	}
	return false
}

// Set is a deduplicated collection of rights keyed by wire identifier.
type Set map[string]Right

// NewSet builds a Set from rights.
func NewSet(rs ...Right) Set {
	set := make(Set, len(rs))
	for _, r := range rs {
		set[r.String()] = r
	}
	return set
}

// Add inserts r into the set.
func (s Set) Add(r Right) { s[r.String()] = r }

// Union merges other into a new set, leaving both inputs untouched.
func (s Set) Union(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Grants reports whether the set authorizes required.
func (s Set) Grants(required Right) bool {
	if required.wildcard {
		return false
	}
	if _, ok := s[required.String()]; ok {
		return true
	}
	if _, ok := s[DomainSystem+":*"]; ok {
		return true
	}
	if _, ok := s[required.Domain+":*"]; ok {
		return true
	}
	return false
}

// Slice returns the rights ordered by identifier for stable output.
func (s Set) Slice() []Right {
	out := make([]Right, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Identifiers returns the sorted wire identifiers of the set.
func (s Set) Identifiers() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
