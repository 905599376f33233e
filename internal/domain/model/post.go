// Package model contains domain models passed between layers.
package model

import "time"

// Post is a "looking for duo" listing as delivered by a listings source.
type Post struct {
	ID           string       `json:"id" yaml:"id"`
	Region       Region       `json:"region" yaml:"region"`
	Role         Role         `json:"role" yaml:"role"`
	VCPreference VCPreference `json:"vc_preference" yaml:"vc_preference"`
	DuoType      DuoType      `json:"duo_type" yaml:"duo_type"`
	Message      string       `json:"message,omitempty" yaml:"message,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`

	// PostingAccount is the account the listing was created with.
	PostingAccount *Account `json:"posting_account,omitempty" yaml:"posting_account,omitempty"`
	// BestRankAccount is the poster's highest ranked linked account, if they link more than one.
	BestRankAccount *Account `json:"best_rank_account,omitempty" yaml:"best_rank_account,omitempty"`
}

// Account is an in-game account snapshot embedded in a post.
// Division is only meaningful below the apex tiers and LP only within them.
type Account struct {
	GameName string   `json:"game_name" yaml:"game_name"`
	TagLine  string   `json:"tag_line" yaml:"tag_line"`
	Rank     string   `json:"rank" yaml:"rank"`
	Division *string  `json:"division,omitempty" yaml:"division,omitempty"`
	LP       *int     `json:"lp,omitempty" yaml:"lp,omitempty"`
	Winrate  *float64 `json:"winrate,omitempty" yaml:"winrate,omitempty"`
}

// Identity is the (game name, tag line) pair that identifies an account.
type Identity struct {
	GameName string
	TagLine  string
}

// Identity returns the account identity.
func (a *Account) Identity() Identity {
	return Identity{GameName: a.GameName, TagLine: a.TagLine}
}
