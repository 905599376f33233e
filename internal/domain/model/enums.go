package model

import (
	"fmt"
	"strings"
)

// Region is a game server region.
type Region string

const (
	RegionNA   Region = "NA"
	RegionEUW  Region = "EUW"
	RegionEUNE Region = "EUNE"
	RegionKR   Region = "KR"
	RegionJP   Region = "JP"
	RegionOCE  Region = "OCE"
	RegionLAN  Region = "LAN"
	RegionLAS  Region = "LAS"
	RegionBR   Region = "BR"
	RegionRU   Region = "RU"
	RegionTR   Region = "TR"
	RegionPH   Region = "PH"
	RegionSG   Region = "SG"
	RegionTH   Region = "TH"
	RegionTW   Region = "TW"
	RegionVN   Region = "VN"
)

// Regions lists every known region in display order.
var Regions = []Region{
	RegionNA, RegionEUW, RegionEUNE, RegionKR, RegionJP, RegionOCE, RegionLAN, RegionLAS,
	RegionBR, RegionRU, RegionTR, RegionPH, RegionSG, RegionTH, RegionTW, RegionVN,
}

// Role is the lane a poster wants to play.
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleADC     Role = "ADC"
	RoleSupport Role = "SUPPORT"
	RoleFill    Role = "FILL"
)

var Roles = []Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport, RoleFill}

// VCPreference is the poster's voice chat preference.
type VCPreference string

const (
	VCAlways    VCPreference = "ALWAYS"
	VCSometimes VCPreference = "SOMETIMES"
	VCNever     VCPreference = "NEVER"
)

var VCPreferences = []VCPreference{VCAlways, VCSometimes, VCNever}

// DuoType is the partnership length a poster is looking for.
type DuoType string

const (
	DuoShortTerm DuoType = "SHORT_TERM"
	DuoLongTerm  DuoType = "LONG_TERM"
	DuoBoth      DuoType = "BOTH"
)

var DuoTypes = []DuoType{DuoShortTerm, DuoLongTerm, DuoBoth}

// Valid reports whether r is a known region.
func (r Region) Valid() bool { return contains(Regions, r) }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return contains(Roles, r) }

// Valid reports whether v is a known preference.
func (v VCPreference) Valid() bool { return contains(VCPreferences, v) }

// Valid reports whether d is a known duo type.
func (d DuoType) Valid() bool { return contains(DuoTypes, d) }

// ParseRegion parses a region case-insensitively.
func ParseRegion(s string) (Region, error) { return parseEnum(s, Regions, "region") }

// ParseRole parses a role case-insensitively.
func ParseRole(s string) (Role, error) { return parseEnum(s, Roles, "role") }

// ParseVCPreference parses a voice chat preference case-insensitively.
func ParseVCPreference(s string) (VCPreference, error) {
	return parseEnum(s, VCPreferences, "vc preference")
}

// ParseDuoType parses a duo type case-insensitively.
func ParseDuoType(s string) (DuoType, error) { return parseEnum(s, DuoTypes, "duo type") }

func contains[T ~string](all []T, v T) bool {
	for _, x := range all {
		if x == v {
			return true
		}
	}
	return false
}

func parseEnum[T ~string](s string, all []T, kind string) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(s)))
	if !contains(all, v) {
		return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, kind, s)
	}
	return v, nil
}
