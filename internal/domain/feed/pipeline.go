package feed

import (
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/rank"
)

// Stage names, in evaluation order.
const (
	StageRank    = "rank"
	StageWinrate = "winrate"
	StageSmurf   = "smurf"
)

const (
	winrateFloor   = 0.0
	winrateCeiling = 100.0
)

// Predicate reports whether a post survives a stage.
type Predicate func(model.Post) bool

// Stage is one active criterion of the pipeline.
type Stage struct {
	Name string
	Keep Predicate
}

// Pipeline is the ordered list of active stages for one FilterState.
type Pipeline []Stage

// stageBuilders returns a stage and whether the state activates it.
var stageBuilders = []func(FilterState) (Stage, bool){
	rankStage,
	winrateStage,
	smurfStage,
}

// Build returns the active stages for s. The categorical prefilter fields are
// not part of the pipeline; sources apply them.
func Build(s FilterState) Pipeline {
	s = s.Clone()
	p := make(Pipeline, 0, len(stageBuilders))
	for _, build := range stageBuilders {
		if st, ok := build(s); ok {
			p = append(p, st)
		}
	}
	return p
}

// Names lists the active stage names.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, st := range p {
		names[i] = st.Name
	}
	return names
}

// Keep reports whether post survives every stage.
func (p Pipeline) Keep(post model.Post) bool {
	for _, st := range p {
		if !st.Keep(post) {
			return false
		}
	}
	return true
}

// Evaluation is the result of running a pipeline.
type Evaluation struct {
	Posts []model.Post
	// Rejected counts the posts each stage removed.
	Rejected map[string]int
}

// Run narrows posts stage by stage, preserving order.
func (p Pipeline) Run(posts []model.Post) Evaluation {
	ev := Evaluation{Rejected: make(map[string]int, len(p))}
	out := make([]model.Post, 0, len(posts))
	out = append(out, posts...)
	for _, st := range p {
		kept := out[:0]
		for _, post := range out {
			if st.Keep(post) {
				kept = append(kept, post)
			}
		}
		ev.Rejected[st.Name] = len(out) - len(kept)
		out = kept
	}
	ev.Posts = out
	return ev
}

// Evaluate runs the pipeline for s over posts.
func Evaluate(posts []model.Post, s FilterState) Evaluation {
	return Build(s).Run(posts)
}

// Filter returns the posts surviving every active stage of s, in input order.
// The result never aliases posts and is never nil.
func Filter(posts []model.Post, s FilterState) []model.Post {
	return Evaluate(posts, s).Posts
}

// rankStage checks the tier range, then the division range below the apex
// tiers or the LP floor within them.
func rankStage(s FilterState) (Stage, bool) {
	if s.MinRank == nil && s.MaxRank == nil {
		return Stage{}, false
	}
	divisionSet := s.MinDivision != nil || s.MaxDivision != nil
	return Stage{Name: StageRank, Keep: func(p model.Post) bool {
		r, ok := rank.FromAccount(p.PostingAccount)
		if !ok {
			return false
		}
		if !rank.Within(r.Tier(), s.MinRank, s.MaxRank) {
			return false
		}
		switch r := r.(type) {
		case rank.NonApex:
			if !divisionSet {
				return true
			}
			d, ok := r.Division()
			return ok && rank.Within(d, s.MinDivision, s.MaxDivision)
		case rank.Apex:
			return s.MinLP == nil || r.LP() >= *s.MinLP
		}
		return false
	}}, true
}

func winrateStage(s FilterState) (Stage, bool) {
	if s.MinWinrate == nil && s.MaxWinrate == nil {
		return Stage{}, false
	}
	lo, hi := winrateFloor, winrateCeiling
	if s.MinWinrate != nil {
		lo = *s.MinWinrate
	}
	if s.MaxWinrate != nil {
		hi = *s.MaxWinrate
	}
	return Stage{Name: StageWinrate, Keep: func(p model.Post) bool {
		if p.PostingAccount == nil || p.PostingAccount.Winrate == nil {
			return false
		}
		w := *p.PostingAccount.Winrate
		return w >= lo && w <= hi
	}}, true
}

func smurfStage(s FilterState) (Stage, bool) {
	var want Classification
	switch s.Smurf {
	case SmurfOnly:
		want = Smurf
	case SmurfNone:
		want = NotSmurf
	default:
		return Stage{}, false
	}
	return Stage{Name: StageSmurf, Keep: func(p model.Post) bool {
		return Classify(p) == want
	}}, true
}
