// Package rank maps account rank strings onto ordered tiers and divisions.
//
// MASTER, GRANDMASTER and CHALLENGER collapse into the MasterPlus tier. Ranks
// below it carry an optional division; MasterPlus ranks carry LP instead.
package rank

import (
	"strings"

	"github.com/okian/duofeed/internal/domain/model"
)

// Tier is the ordinal position of a rank tier.
type Tier int

const (
	Iron Tier = iota
	Bronze
	Silver
	Gold
	Platinum
	Emerald
	Diamond
	MasterPlus
)

var tierNames = [...]string{"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM", "EMERALD", "DIAMOND", "MASTER_PLUS"}

// apexNames are the account rank strings that fall in MasterPlus.
var apexNames = map[string]struct{}{
	"MASTER":      {},
	"GRANDMASTER": {},
	"CHALLENGER":  {},
}

func (t Tier) String() string {
	if t < Iron || t > MasterPlus {
		return "UNKNOWN"
	}
	return tierNames[t]
}

// Apex reports whether t is the MasterPlus bucket.
func (t Tier) Apex() bool { return t == MasterPlus }

// ParseTier accepts a tier name, MASTER_PLUS, or one of the apex rank names.
// UNRANKED and unknown strings are not found.
func ParseTier(s string) (Tier, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if _, ok := apexNames[s]; ok {
		return MasterPlus, true
	}
	for i, name := range tierNames {
		if name == s {
			return Tier(i), true
		}
	}
	return 0, false
}

// Division is the ordinal position of a sub-tier: IV < III < II < I.
type Division int

const (
	DivisionIV Division = iota
	DivisionIII
	DivisionII
	DivisionI
)

var divisionNames = [...]string{"IV", "III", "II", "I"}

func (d Division) String() string {
	if d < DivisionIV || d > DivisionI {
		return "UNKNOWN"
	}
	return divisionNames[d]
}

// ParseDivision accepts roman (IV..I) or arabic (4..1) divisions.
func ParseDivision(s string) (Division, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IV", "4":
		return DivisionIV, true
	case "III", "3":
		return DivisionIII, true
	case "II", "2":
		return DivisionII, true
	case "I", "1":
		return DivisionI, true
	}
	return 0, false
}

// Rank is either NonApex or Apex.
type Rank interface {
	Tier() Tier
	isRank()
}

// NonApex is a rank from Iron to Diamond with an optional division.
type NonApex struct {
	tier        Tier
	division    Division
	hasDivision bool
}

func (r NonApex) Tier() Tier { return r.tier }

// Division returns the division and whether the account reported one.
func (r NonApex) Division() (Division, bool) { return r.division, r.hasDivision }

func (NonApex) isRank() {}

// Apex is a MasterPlus rank. LP defaults to 0 when the account has none.
type Apex struct {
	name string
	lp   int
}

func (Apex) Tier() Tier { return MasterPlus }

// Name is the original apex rank name, e.g. GRANDMASTER.
func (r Apex) Name() string { return r.name }

func (r Apex) LP() int { return r.lp }

func (Apex) isRank() {}

// NewNonApex builds a NonApex rank. It panics on MasterPlus.
func NewNonApex(t Tier, d *Division) NonApex {
	if t.Apex() {
		panic("rank: NewNonApex called with MasterPlus")
	}
	r := NonApex{tier: t}
	if d != nil {
		r.division, r.hasDivision = *d, true
	}
	return r
}

// NewApex builds an Apex rank.
func NewApex(name string, lp int) Apex {
	return Apex{name: name, lp: lp}
}

// FromAccount derives the rank of an account. A nil account or a rank string
// that maps to no tier is not found.
func FromAccount(a *model.Account) (Rank, bool) {
	if a == nil {
		return nil, false
	}
	t, ok := ParseTier(a.Rank)
	if !ok {
		return nil, false
	}
	if t.Apex() {
		lp := 0
		if a.LP != nil {
			lp = *a.LP
		}
		return NewApex(strings.ToUpper(strings.TrimSpace(a.Rank)), lp), true
	}
	var div *Division
	if a.Division != nil {
		if d, ok := ParseDivision(*a.Division); ok {
			div = &d
		}
	}
	return NewNonApex(t, div), true
}

// Within reports lo <= v <= hi with nil bounds open.
func Within[T ~int](v T, lo, hi *T) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}
