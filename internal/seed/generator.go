package seed

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duofeed/internal/domain/model"
)

// Rank strings drawn for generated accounts, weighted toward the middle tiers.
var rankPool = []string{
	"IRON", "BRONZE", "BRONZE", "SILVER", "SILVER", "SILVER",
	"GOLD", "GOLD", "GOLD", "PLATINUM", "PLATINUM", "EMERALD", "EMERALD",
	"DIAMOND", "MASTER", "GRANDMASTER", "CHALLENGER", "UNRANKED",
}

var divisions = []string{"IV", "III", "II", "I"}

var messages = []string{
	"chill games, no flame",
	"looking for a main duo for the split",
	"climbing tonight, mic on",
	"need a support who roams",
	"",
}

const (
	maxApexLP      = 1200
	minWinrate     = 35.0
	winrateSpread  = 35.0
	maxAgeMinutes  = 24 * 60
	unknownWRRatio = 0.1
)

// Generator produces random, valid listings.
type Generator struct {
	rnd        *rand.Rand
	now        func() time.Time
	regions    []model.Region
	smurfRatio float64
}

// NewGenerator returns a generator. The same seed yields the same listings
// apart from their ids.
func NewGenerator(seed uint64, regions []model.Region, smurfRatio float64, now func() time.Time) *Generator {
	if len(regions) == 0 {
		regions = model.Regions
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rnd:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:        now,
		regions:    regions,
		smurfRatio: smurfRatio,
	}
}

// Post returns one listing.
func (g *Generator) Post() model.Post {
	created := g.now().UTC().Add(-time.Duration(g.rnd.IntN(maxAgeMinutes)) * time.Minute)
	p := model.Post{
		ID:           uuid.NewString(),
		Region:       pick(g.rnd, g.regions),
		Role:         pick(g.rnd, model.Roles),
		VCPreference: pick(g.rnd, model.VCPreferences),
		DuoType:      pick(g.rnd, model.DuoTypes),
		Message:      pick(g.rnd, messages),
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	owner := g.account(fmt.Sprintf("player%04d", g.rnd.IntN(10_000)))
	p.PostingAccount = owner
	if g.rnd.Float64() < g.smurfRatio {
		p.BestRankAccount = owner
		p.PostingAccount = g.account(owner.GameName + "alt")
	}
	return p
}

// Posts returns n listings.
func (g *Generator) Posts(n int) []model.Post {
	out := make([]model.Post, n)
	for i := range out {
		out[i] = g.Post()
	}
	return out
}

func (g *Generator) account(name string) *model.Account {
	a := &model.Account{
		GameName: name,
		TagLine:  strconv.Itoa(1000 + g.rnd.IntN(9000)),
		Rank:     pick(g.rnd, rankPool),
	}
	switch a.Rank {
	case "UNRANKED":
	case "MASTER", "GRANDMASTER", "CHALLENGER":
		lp := g.rnd.IntN(maxApexLP)
		a.LP = &lp
	default:
		d := pick(g.rnd, divisions)
		a.Division = &d
	}
	if g.rnd.Float64() >= unknownWRRatio {
		wr := minWinrate + g.rnd.Float64()*winrateSpread
		a.Winrate = &wr
	}
	return a
}

func pick[T any](rnd *rand.Rand, from []T) T {
	return from[rnd.IntN(len(from))]
}

// NewEvent wraps p in an upsert event.
func NewEvent(p model.Post, ts time.Time) Event {
	return Event{
		EventID: uuid.NewString(),
		Op:      string(model.OpUpsert),
		Post:    p,
		TS:      ts.UTC().Format(time.RFC3339),
	}
}
