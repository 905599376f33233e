package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/duofeed/internal/adapters/repository"
	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/pagination"
	"github.com/okian/duofeed/internal/domain/rank"
)

const (
	flagFixture     = "fixture"
	flagRegion      = "region"
	flagRole        = "role"
	flagVC          = "vc"
	flagDuoType     = "duo-type"
	flagMinRank     = "min-rank"
	flagMaxRank     = "max-rank"
	flagMinDivision = "min-division"
	flagMaxDivision = "max-division"
	flagMinLP       = "min-lp"
	flagMinWinrate  = "min-winrate"
	flagMaxWinrate  = "max-winrate"
	flagSmurf       = "smurf"
	flagVisible     = "visible"
	flagOutput      = "output"
)

var errFixtureRequired = errors.New("--fixture is required")

func newFilterCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "filter",
		Short: "Run the feed filters over a listing fixture",
		Example: `  feedctl filter --fixture posts.yaml --region EUW --min-rank PLATINUM --smurf none
  feedctl filter --fixture posts.json --role MID,ADC --min-winrate 55 --output json`,
		Args: cobra.NoArgs,
		RunE: runFilterCommand,
	}

	f := command.Flags()
	f.String(flagFixture, "", "Listing fixture (.yaml, .yml or .json)")
	f.StringSlice(flagRegion, nil, "Regions to keep")
	f.StringSlice(flagRole, nil, "Roles to keep")
	f.String(flagVC, "", "Voice chat preference")
	f.String(flagDuoType, "", "Duo type")
	f.String(flagMinRank, "", "Lowest tier, e.g. GOLD")
	f.String(flagMaxRank, "", "Highest tier, e.g. MASTER_PLUS")
	f.String(flagMinDivision, "", "Lowest division (IV..I)")
	f.String(flagMaxDivision, "", "Highest division (IV..I)")
	f.Int(flagMinLP, 0, "LP floor within the apex tiers")
	f.Float64(flagMinWinrate, 0, "Lowest win rate, 0-100")
	f.Float64(flagMaxWinrate, 100, "Highest win rate, 0-100")
	f.String(flagSmurf, "all", "Smurf filter: all, only, none")
	f.Int(flagVisible, pagination.DefaultPageSize, "Posts to show")
	f.String(flagOutput, "table", "Output format: table, json, yaml")
	return command
}

func runFilterCommand(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString(flagFixture)
	if path == "" {
		return errFixtureRequired
	}
	state, err := stateFromFlags(cmd)
	if err != nil {
		return err
	}
	visible, _ := cmd.Flags().GetInt(flagVisible)
	output, _ := cmd.Flags().GetString(flagOutput)

	posts, err := loadFixture(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	store := repository.NewMemoryStore(ctx, repository.WithPosts(posts))
	defer func() { _ = store.Close() }()

	candidates, err := store.Query(ctx, state.Prefilter())
	if err != nil {
		return err
	}
	ev := feed.Evaluate(candidates, state)
	page, hasMore := pagination.Window(ev.Posts, visible)

	res := filterResult{
		Fixture:    len(posts),
		Prefilter:  len(candidates),
		Matched:    len(ev.Posts),
		HasMore:    hasMore,
		Rejections: ev.Rejected,
		Posts:      page,
	}
	return writeResult(cmd.OutOrStdout(), output, res)
}

func stateFromFlags(cmd *cobra.Command) (feed.FilterState, error) {
	f := cmd.Flags()
	var s feed.FilterState

	regions, _ := f.GetStringSlice(flagRegion)
	for _, raw := range regions {
		r, err := model.ParseRegion(raw)
		if err != nil {
			return s, err
		}
		s.Regions = append(s.Regions, r)
	}
	roles, _ := f.GetStringSlice(flagRole)
	for _, raw := range roles {
		r, err := model.ParseRole(raw)
		if err != nil {
			return s, err
		}
		s.Roles = append(s.Roles, r)
	}
	if raw, _ := f.GetString(flagVC); raw != "" {
		vc, err := model.ParseVCPreference(raw)
		if err != nil {
			return s, err
		}
		s.VCPreference = &vc
	}
	if raw, _ := f.GetString(flagDuoType); raw != "" {
		d, err := model.ParseDuoType(raw)
		if err != nil {
			return s, err
		}
		s.DuoType = &d
	}

	var err error
	if s.MinRank, err = tierFlag(cmd, flagMinRank); err != nil {
		return s, err
	}
	if s.MaxRank, err = tierFlag(cmd, flagMaxRank); err != nil {
		return s, err
	}
	if s.MinDivision, err = divisionFlag(cmd, flagMinDivision); err != nil {
		return s, err
	}
	if s.MaxDivision, err = divisionFlag(cmd, flagMaxDivision); err != nil {
		return s, err
	}
	if f.Changed(flagMinLP) {
		lp, _ := f.GetInt(flagMinLP)
		if lp < 0 {
			return s, fmt.Errorf("%w: --%s must not be negative", model.ErrInvalidValue, flagMinLP)
		}
		s.MinLP = &lp
	}
	if s.MinWinrate, err = winrateFlag(cmd, flagMinWinrate); err != nil {
		return s, err
	}
	if s.MaxWinrate, err = winrateFlag(cmd, flagMaxWinrate); err != nil {
		return s, err
	}

	smurf, _ := f.GetString(flagSmurf)
	if s.Smurf, err = feed.ParseSmurfFilter(smurf); err != nil {
		return s, err
	}
	return s, nil
}

func tierFlag(cmd *cobra.Command, name string) (*rank.Tier, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	t, ok := rank.ParseTier(raw)
	if !ok {
		return nil, fmt.Errorf("%w: --%s %q", model.ErrInvalidValue, name, raw)
	}
	return &t, nil
}

func divisionFlag(cmd *cobra.Command, name string) (*rank.Division, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	d, ok := rank.ParseDivision(raw)
	if !ok {
		return nil, fmt.Errorf("%w: --%s %q", model.ErrInvalidValue, name, raw)
	}
	return &d, nil
}

func winrateFlag(cmd *cobra.Command, name string) (*float64, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	if v < 0 || v > 100 {
		return nil, fmt.Errorf("%w: --%s must be within [0, 100]", model.ErrInvalidValue, name)
	}
	return &v, nil
}

type filterResult struct {
	Fixture    int            `json:"fixture" yaml:"fixture"`
	Prefilter  int            `json:"prefilter" yaml:"prefilter"`
	Matched    int            `json:"matched" yaml:"matched"`
	HasMore    bool           `json:"has_more" yaml:"has_more"`
	Rejections map[string]int `json:"rejections" yaml:"rejections"`
	Posts      []model.Post   `json:"posts" yaml:"posts"`
}

func writeResult(w io.Writer, format string, res filterResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		return writeTable(w, res)
	default:
		return fmt.Errorf("%w: output %q", model.ErrInvalidValue, format)
	}
}

func writeTable(w io.Writer, res filterResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "ID", "Region", "Role", "VC", "Duo", "Rank", "WR", "Smurf")
	for i, p := range res.Posts {
		if err := table.Append(
			strconv.Itoa(i+1),
			p.ID,
			string(p.Region),
			string(p.Role),
			string(p.VCPreference),
			string(p.DuoType),
			rankLabel(p.PostingAccount),
			winrateLabel(p.PostingAccount),
			feed.Classify(p).String(),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "fixture=%d prefilter=%d matched=%d shown=%d has_more=%t\n",
		res.Fixture, res.Prefilter, res.Matched, len(res.Posts), res.HasMore)
	stages := make([]string, 0, len(res.Rejections))
	for name := range res.Rejections {
		stages = append(stages, name)
	}
	sort.Strings(stages)
	for _, name := range stages {
		fmt.Fprintf(w, "  %s stage rejected %d\n", name, res.Rejections[name])
	}
	return nil
}

func rankLabel(a *model.Account) string {
	r, ok := rank.FromAccount(a)
	if !ok {
		return "-"
	}
	switch v := r.(type) {
	case rank.Apex:
		return fmt.Sprintf("%s %dLP", v.Name(), v.LP())
	case rank.NonApex:
		if d, ok := v.Division(); ok {
			return v.Tier().String() + " " + d.String()
		}
		return v.Tier().String()
	}
	return "-"
}

func winrateLabel(a *model.Account) string {
	if a == nil || a.Winrate == nil {
		return "-"
	}
	return strconv.FormatFloat(*a.Winrate, 'f', 1, 64)
}
