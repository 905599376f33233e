package ads_test

import (
	"testing"

	"github.com/okian/duofeed/internal/domain/ads"
	"github.com/okian/duofeed/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func adIDs(a *model.Ad) string {
	if a == nil {
		return ""
	}
	return a.ID
}

func TestPickAdRotation(t *testing.T) {
	Convey("Given three region-unrestricted ads and frequency 5", t, func() {
		all := []model.Ad{{ID: "A"}, {ID: "B"}, {ID: "C"}}

		Convey("Then successive slots rotate A, B, C, A", func() {
			So(adIDs(ads.PickAd(all, 4, 5, "", nil)), ShouldEqual, "A")
			So(adIDs(ads.PickAd(all, 9, 5, "", nil)), ShouldEqual, "B")
			So(adIDs(ads.PickAd(all, 14, 5, "", nil)), ShouldEqual, "C")
			So(adIDs(ads.PickAd(all, 19, 5, "", nil)), ShouldEqual, "A")
		})

		Convey("Then non-boundary positions get no ad", func() {
			So(ads.PickAd(all, 3, 5, "", nil), ShouldBeNil)
			So(ads.PickAd(all, 0, 5, "", nil), ShouldBeNil)
		})

		Convey("Then the same inputs always pick the same ad", func() {
			So(adIDs(ads.PickAd(all, 9, 5, "", nil)), ShouldEqual, adIDs(ads.PickAd(all, 9, 5, "", nil)))
		})
	})
}

func TestPickAdEligibility(t *testing.T) {
	Convey("Given ads with region targets", t, func() {
		all := []model.Ad{
			{ID: "eu", TargetRegions: []model.Region{model.RegionEUW, model.RegionEUNE}},
			{ID: "global"},
			{ID: "kr", TargetRegions: []model.Region{model.RegionKR}},
		}

		Convey("When there are no ads or the frequency is not positive", func() {
			So(ads.PickAd(nil, 4, 5, model.RegionEUW, nil), ShouldBeNil)
			So(ads.PickAd(all, 4, 0, model.RegionEUW, nil), ShouldBeNil)
			So(ads.PickAd(all, 4, -5, model.RegionEUW, nil), ShouldBeNil)
		})

		Convey("When the viewer is in EUW", func() {
			Convey("Then the pool rotates over eu and global only", func() {
				So(adIDs(ads.PickAd(all, 1, 2, model.RegionEUW, nil)), ShouldEqual, "eu")
				So(adIDs(ads.PickAd(all, 3, 2, model.RegionEUW, nil)), ShouldEqual, "global")
				So(adIDs(ads.PickAd(all, 5, 2, model.RegionEUW, nil)), ShouldEqual, "eu")
			})
		})

		Convey("When the viewer dismissed an ad", func() {
			Convey("Then it is never picked", func() {
				for pos := 1; pos < 20; pos += 2 {
					So(adIDs(ads.PickAd(all, pos, 2, model.RegionEUW, []string{"eu"})), ShouldEqual, "global")
				}
			})
		})

		Convey("When every eligible ad is dismissed", func() {
			Convey("Then no ineligible ad is used as a fallback", func() {
				So(ads.PickAd(all, 1, 2, model.RegionNA, []string{"global"}), ShouldBeNil)
			})
		})
	})
}

func TestInterleave(t *testing.T) {
	Convey("Given seven posts and two ads at frequency 3", t, func() {
		posts := make([]model.Post, 7)
		for i := range posts {
			posts[i] = model.Post{ID: string(rune('a' + i))}
		}
		all := []model.Ad{{ID: "X"}, {ID: "Y"}}

		items := ads.Interleave(posts, all, 3, model.RegionNA, nil)

		Convey("Then an ad follows every third post", func() {
			var got []string
			for _, it := range items {
				if it.Kind == ads.KindAd {
					got = append(got, "ad:"+it.Ad.ID)
					continue
				}
				got = append(got, it.Post.ID)
			}
			So(got, ShouldResemble, []string{"a", "b", "c", "ad:X", "d", "e", "f", "ad:Y", "g"})
		})

		Convey("Then no ads are injected when frequency is zero", func() {
			So(ads.Interleave(posts, all, 0, model.RegionNA, nil), ShouldHaveLength, 7)
		})
	})
}
