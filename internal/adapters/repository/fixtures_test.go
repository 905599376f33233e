package repository

import (
	"time"

	"github.com/okian/duofeed/internal/domain/model"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixturePost(id string, region model.Region, role model.Role, age time.Duration) model.Post {
	lp := 420
	return model.Post{
		ID:           id,
		Region:       region,
		Role:         role,
		VCPreference: model.VCSometimes,
		DuoType:      model.DuoLongTerm,
		Message:      "gg " + id,
		CreatedAt:    baseTime.Add(-age),
		UpdatedAt:    baseTime.Add(-age),
		PostingAccount: &model.Account{
			GameName: "p-" + id, TagLine: "EUW", Rank: "MASTER", LP: &lp,
		},
	}
}

func fixturePosts() []model.Post {
	return []model.Post{
		fixturePost("old-euw-mid", model.RegionEUW, model.RoleMid, 3*time.Hour),
		fixturePost("new-na-top", model.RegionNA, model.RoleTop, time.Minute),
		fixturePost("mid-euw-adc", model.RegionEUW, model.RoleADC, time.Hour),
		fixturePost("kr-sup", model.RegionKR, model.RoleSupport, 2*time.Hour),
	}
}

func postIDs(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
