package feed

import "github.com/okian/duofeed/internal/domain/model"

// Classification is the smurf status derived from a post's accounts.
type Classification int

const (
	// Unclassified posts have no posting account.
	Unclassified Classification = iota
	NotSmurf
	Smurf
)

func (c Classification) String() string {
	switch c {
	case NotSmurf:
		return "not_smurf"
	case Smurf:
		return "smurf"
	default:
		return "unclassified"
	}
}

// Classify derives the smurf status of a post. A post is a smurf when it was
// made from an account other than the poster's best ranked one.
func Classify(p model.Post) Classification {
	if p.PostingAccount == nil {
		return Unclassified
	}
	if p.BestRankAccount == nil {
		return NotSmurf
	}
	if p.PostingAccount.Identity() != p.BestRankAccount.Identity() {
		return Smurf
	}
	return NotSmurf
}
