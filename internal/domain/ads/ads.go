// Package ads selects ads for slots injected into the feed.
package ads

import (
	"slices"

	"github.com/okian/duofeed/internal/domain/model"
)

// IsSlot reports whether an ad slot follows the post at position (0-based).
func IsSlot(position, frequency int) bool {
	return frequency > 0 && position >= 0 && (position+1)%frequency == 0
}

// Eligible returns the ads that are not dismissed and that target region.
func Eligible(all []model.Ad, region model.Region, dismissed []string) []model.Ad {
	pool := make([]model.Ad, 0, len(all))
	for _, ad := range all {
		if slices.Contains(dismissed, ad.ID) || !ad.Targets(region) {
			continue
		}
		pool = append(pool, ad)
	}
	return pool
}

// PickAd returns the ad for the slot after position, or nil when position is
// not a slot or no ad is eligible. Successive slots rotate through the
// eligible pool in order.
func PickAd(all []model.Ad, position, frequency int, region model.Region, dismissed []string) *model.Ad {
	if len(all) == 0 || !IsSlot(position, frequency) {
		return nil
	}
	pool := Eligible(all, region, dismissed)
	if len(pool) == 0 {
		return nil
	}
	ad := pool[(position/frequency)%len(pool)]
	return &ad
}

// Kind tags a FeedItem.
type Kind string

const (
	KindPost Kind = "post"
	KindAd   Kind = "ad"
)

// FeedItem is either a post or an ad in rendered feed order.
type FeedItem struct {
	Kind Kind        `json:"kind"`
	Post *model.Post `json:"post,omitempty"`
	Ad   *model.Ad   `json:"ad,omitempty"`
}

// Interleave walks posts and inserts the picked ad after every slot position.
// Positions are indices into posts, so a page must start at position zero.
func Interleave(posts []model.Post, all []model.Ad, frequency int, region model.Region, dismissed []string) []FeedItem {
	items := make([]FeedItem, 0, len(posts)+len(posts)/max(frequency, 1))
	for i := range posts {
		items = append(items, FeedItem{Kind: KindPost, Post: &posts[i]})
		if ad := PickAd(all, i, frequency, region, dismissed); ad != nil {
			items = append(items, FeedItem{Kind: KindAd, Ad: ad})
		}
	}
	return items
}
