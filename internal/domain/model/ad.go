package model

// Ad is a sponsor or staff ad eligible for feed slots.
// An empty TargetRegions list targets every region.
type Ad struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	ImageURL      string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	LinkURL       string   `json:"link_url,omitempty" yaml:"link_url,omitempty"`
	TargetRegions []Region `json:"target_regions,omitempty" yaml:"target_regions,omitempty"`
}

// Targets reports whether the ad may be shown to a viewer in region.
func (a Ad) Targets(region Region) bool {
	if len(a.TargetRegions) == 0 {
		return true
	}
	for _, r := range a.TargetRegions {
		if r == region {
			return true
		}
	}
	return false
}
