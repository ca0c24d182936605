package rights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConcreteRight(t *testing.T) {
	r, err := Parse("content:courses:manage")
	require.NoError(t, err)
	assert.Equal(t, "content", r.Domain)
	assert.Equal(t, "courses", r.Resource)
	assert.Equal(t, "manage", r.Action)
	assert.False(t, r.IsWildcard())
	assert.Equal(t, "content:courses:manage", r.String())
}

func TestParseNormalizesCase(t *testing.T) {
	r, err := Parse("  Content:Courses:MANAGE ")
	require.NoError(t, err)
	assert.Equal(t, "content:courses:manage", r.String())
}

func TestParseWildcard(t *testing.T) {
	r, err := Parse("content:*")
	require.NoError(t, err)
	assert.True(t, r.IsWildcard())
	assert.Equal(t, "content:*", r.String())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, id := range []string{
		"",
		"content",
		"content:courses",
		"content:*:manage",
		"content:courses:*",
		"*:courses:manage",
		"*:*",
		":*",
		"a:b:c:d",
	} {
		_, err := Parse(id)
		assert.Error(t, err, "identifier %q", id)
	}
}

func TestGrantsExactMatch(t *testing.T) {
	held := MustParse("content:courses:manage")
	assert.True(t, held.Grants(MustParse("content:courses:manage")))
	assert.False(t, held.Grants(MustParse("content:courses:read")))
	assert.False(t, held.Grants(MustParse("enrollment:students:manage")))
}

func TestGrantsDomainWildcard(t *testing.T) {
	held := MustParse("content:*")
	assert.True(t, held.Grants(MustParse("content:courses:manage")))
	assert.True(t, held.Grants(MustParse("content:media:read")))
	assert.False(t, held.Grants(MustParse("enrollment:students:manage")))
}

func TestGrantsSuperWildcard(t *testing.T) {
	held := MustParse("system:*")
	assert.True(t, held.Grants(MustParse("content:courses:manage")))
	assert.True(t, held.Grants(MustParse("billing:invoices:view")))
	assert.True(t, held.Grants(MustParse("users:accounts:manage")))
}

func TestWildcardRequiredNeverMatches(t *testing.T) {
	required := MustParse("content:*")
	assert.False(t, MustParse("content:*").Grants(required))
	assert.False(t, MustParse("system:*").Grants(required))
	assert.False(t, Matches([]Right{MustParse("system:*"), MustParse("content:*")}, required))
}

func TestMatchesScenario(t *testing.T) {
	held := []Right{MustParse("content:*")}
	assert.True(t, Matches(held, MustParse("content:courses:manage")))
	assert.False(t, Matches(held, MustParse("enrollment:students:manage")))
}

func TestSetGrants(t *testing.T) {
	set := NewSet(MustParse("content:courses:read"), MustParse("reports:*"))
	assert.True(t, set.Grants(MustParse("content:courses:read")))
	assert.True(t, set.Grants(MustParse("reports:progress:view")))
	assert.False(t, set.Grants(MustParse("content:courses:manage")))
	assert.False(t, set.Grants(MustParse("reports:*")))
}

func TestSetUnionDeduplicates(t *testing.T) {
	a := NewSet(MustParse("content:courses:read"), MustParse("content:courses:manage"))
	b := NewSet(MustParse("content:courses:read"), MustParse("enrollment:students:view"))
	union := a.Union(b)
	assert.Len(t, union, 3)
	assert.ElementsMatch(t, []string{
		"content:courses:manage",
		"content:courses:read",
		"enrollment:students:view",
	}, union.Identifiers())
	// inputs untouched
	assert.Len(t, a, 2)
	assert.Len(t, b, 2)
}

func TestSeedCatalogParses(t *testing.T) {
	for _, entry := range SeedCatalog() {
		parsed, err := entry.Right()
		require.NoError(t, err, entry.ID)
		assert.Equal(t, entry.ID, parsed.String())
		assert.True(t, ValidDomain(parsed.Domain), entry.ID)
		if entry.Sensitive {
			assert.True(t, ValidSensitivityCategory(entry.SensitivityCategory), entry.ID)
		}
	}
}
