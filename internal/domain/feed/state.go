// Package feed implements the listing filter engine.
//
// The engine refines an already prefiltered collection by rank, division, LP,
// winrate and smurf status. It is a pure function of its inputs: the output
// is the subsequence of the input that survives every active stage, in input
// order. Missing data never matches an active stage.
package feed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/rank"
)

// SmurfFilter selects posts by smurf classification.
type SmurfFilter int

const (
	SmurfAll SmurfFilter = iota
	SmurfOnly
	SmurfNone
)

func (f SmurfFilter) String() string {
	switch f {
	case SmurfOnly:
		return "only"
	case SmurfNone:
		return "none"
	default:
		return "all"
	}
}

// ParseSmurfFilter accepts all, only and none in any case. The empty string
// is all. HTTP binding validates against the same set.
func ParseSmurfFilter(s string) (SmurfFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return SmurfAll, nil
	case "only":
		return SmurfOnly, nil
	case "none":
		return SmurfNone, nil
	}
	return SmurfAll, fmt.Errorf("%w: unknown smurf filter %q", model.ErrInvalidValue, s)
}

func (f SmurfFilter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *SmurfFilter) UnmarshalText(b []byte) error {
	v, err := ParseSmurfFilter(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// FilterState is the full viewer filter. Nil pointers and empty slices mean
// the criterion is not set.
type FilterState struct {
	Regions      []model.Region
	Roles        []model.Role
	VCPreference *model.VCPreference
	DuoType      *model.DuoType

	MinRank     *rank.Tier
	MaxRank     *rank.Tier
	MinDivision *rank.Division
	MaxDivision *rank.Division
	MinLP       *int
	MinWinrate  *float64
	MaxWinrate  *float64

	Smurf SmurfFilter
}

// IsZero reports whether no criterion is set.
func (s FilterState) IsZero() bool {
	return s.Prefilter().IsZero() &&
		s.MinRank == nil && s.MaxRank == nil &&
		s.MinDivision == nil && s.MaxDivision == nil &&
		s.MinLP == nil &&
		s.MinWinrate == nil && s.MaxWinrate == nil &&
		s.Smurf == SmurfAll
}

// Equal compares two states. Region and role sets compare without regard to order.
func (s FilterState) Equal(o FilterState) bool {
	return s.Prefilter().Equal(o.Prefilter()) &&
		ptrEqual(s.MinRank, o.MinRank) && ptrEqual(s.MaxRank, o.MaxRank) &&
		ptrEqual(s.MinDivision, o.MinDivision) && ptrEqual(s.MaxDivision, o.MaxDivision) &&
		ptrEqual(s.MinLP, o.MinLP) &&
		ptrEqual(s.MinWinrate, o.MinWinrate) && ptrEqual(s.MaxWinrate, o.MaxWinrate) &&
		s.Smurf == o.Smurf
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	c := s
	c.Regions = slices.Clone(s.Regions)
	c.Roles = slices.Clone(s.Roles)
	c.VCPreference = ptrClone(s.VCPreference)
	c.DuoType = ptrClone(s.DuoType)
	c.MinRank = ptrClone(s.MinRank)
	c.MaxRank = ptrClone(s.MaxRank)
	c.MinDivision = ptrClone(s.MinDivision)
	c.MaxDivision = ptrClone(s.MaxDivision)
	c.MinLP = ptrClone(s.MinLP)
	c.MinWinrate = ptrClone(s.MinWinrate)
	c.MaxWinrate = ptrClone(s.MaxWinrate)
	return c
}

// Prefilter returns the categorical subset handed to the listings source.
func (s FilterState) Prefilter() Prefilter {
	return Prefilter{
		Regions:      s.Regions,
		Roles:        s.Roles,
		VCPreference: s.VCPreference,
		DuoType:      s.DuoType,
	}
}

// Prefilter holds the categorical criteria a listings source applies natively.
// Empty sets and nil values are unrestricted.
type Prefilter struct {
	Regions      []model.Region
	Roles        []model.Role
	VCPreference *model.VCPreference
	DuoType      *model.DuoType
}

// IsZero reports whether the prefilter restricts nothing.
func (p Prefilter) IsZero() bool {
	return len(p.Regions) == 0 && len(p.Roles) == 0 && p.VCPreference == nil && p.DuoType == nil
}

// Matches applies the prefilter to one post. Only sources call this.
func (p Prefilter) Matches(post model.Post) bool {
	if len(p.Regions) > 0 && !slices.Contains(p.Regions, post.Region) {
		return false
	}
	if len(p.Roles) > 0 && !slices.Contains(p.Roles, post.Role) {
		return false
	}
	if p.VCPreference != nil && post.VCPreference != *p.VCPreference {
		return false
	}
	if p.DuoType != nil && post.DuoType != *p.DuoType {
		return false
	}
	return true
}

// Equal compares two prefilters as sets.
func (p Prefilter) Equal(o Prefilter) bool {
	return sameSet(p.Regions, o.Regions) && sameSet(p.Roles, o.Roles) &&
		ptrEqual(p.VCPreference, o.VCPreference) && ptrEqual(p.DuoType, o.DuoType)
}

// Key is a canonical string form, usable as a cache key.
func (p Prefilter) Key() string {
	regions := make([]string, 0, len(p.Regions))
	for _, r := range p.Regions {
		regions = append(regions, string(r))
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	slices.Sort(regions)
	regions = slices.Compact(regions)
	slices.Sort(roles)
	roles = slices.Compact(roles)

	var vc, duo string
	if p.VCPreference != nil {
		vc = string(*p.VCPreference)
	}
	if p.DuoType != nil {
		duo = string(*p.DuoType)
	}
	return fmt.Sprintf("r=%s;o=%s;v=%s;d=%s", strings.Join(regions, ","), strings.Join(roles, ","), vc, duo)
}

func sameSet[T comparable](a, b []T) bool {
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrClone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
