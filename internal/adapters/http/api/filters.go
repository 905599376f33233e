package api

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/rank"
)

// filterPayload is the wire form of a filter state, used both as a JSON body
// and, field by field, as query parameters.
type filterPayload struct {
	Regions     []string `json:"region,omitempty" validate:"omitempty,dive,required"`
	Roles       []string `json:"role,omitempty" validate:"omitempty,dive,required"`
	VC          string   `json:"vc,omitempty"`
	DuoType     string   `json:"duo_type,omitempty"`
	MinRank     string   `json:"min_rank,omitempty"`
	MaxRank     string   `json:"max_rank,omitempty"`
	MinDivision string   `json:"min_division,omitempty"`
	MaxDivision string   `json:"max_division,omitempty"`
	MinLP       *int     `json:"min_lp,omitempty" validate:"omitempty,gte=0"`
	MinWinrate  *float64 `json:"min_winrate,omitempty" validate:"omitempty,gte=0,lte=100"`
	MaxWinrate  *float64 `json:"max_winrate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Smurf       string   `json:"smurf,omitempty" validate:"omitempty,oneof=all only none"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator returns the shared validator, reporting json field names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validationError flattens validator errors into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// filterFromQuery reads filter parameters. Region and role may repeat or be
// comma separated.
func filterFromQuery(q url.Values) (filterPayload, error) {
	p := filterPayload{
		Regions:     splitList(q["region"]),
		Roles:       splitList(q["role"]),
		VC:          q.Get("vc"),
		DuoType:     q.Get("duo_type"),
		MinRank:     q.Get("min_rank"),
		MaxRank:     q.Get("max_rank"),
		MinDivision: q.Get("min_division"),
		MaxDivision: q.Get("max_division"),
		Smurf:       strings.ToLower(q.Get("smurf")),
	}
	var err error
	if p.MinLP, err = optionalInt(q, "min_lp"); err != nil {
		return p, err
	}
	if p.MinWinrate, err = optionalFloat(q, "min_winrate"); err != nil {
		return p, err
	}
	if p.MaxWinrate, err = optionalFloat(q, "max_winrate"); err != nil {
		return p, err
	}
	return p, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

// state validates the payload and converts it to a filter state.
func (p filterPayload) state() (feed.FilterState, error) {
	p.Smurf = strings.ToLower(strings.TrimSpace(p.Smurf))
	if err := getValidator().Struct(p); err != nil {
		return feed.FilterState{}, validationError(err)
	}

	var s feed.FilterState
	for _, raw := range p.Regions {
		r, err := model.ParseRegion(raw)
		if err != nil {
			return s, err
		}
		s.Regions = append(s.Regions, r)
	}
	for _, raw := range p.Roles {
		r, err := model.ParseRole(raw)
		if err != nil {
			return s, err
		}
		s.Roles = append(s.Roles, r)
	}
	if p.VC != "" {
		vc, err := model.ParseVCPreference(p.VC)
		if err != nil {
			return s, err
		}
		s.VCPreference = &vc
	}
	if p.DuoType != "" {
		d, err := model.ParseDuoType(p.DuoType)
		if err != nil {
			return s, err
		}
		s.DuoType = &d
	}

	var err error
	if s.MinRank, err = parseTier("min_rank", p.MinRank); err != nil {
		return s, err
	}
	if s.MaxRank, err = parseTier("max_rank", p.MaxRank); err != nil {
		return s, err
	}
	if s.MinDivision, err = parseDivision("min_division", p.MinDivision); err != nil {
		return s, err
	}
	if s.MaxDivision, err = parseDivision("max_division", p.MaxDivision); err != nil {
		return s, err
	}
	s.MinLP = p.MinLP
	s.MinWinrate = p.MinWinrate
	s.MaxWinrate = p.MaxWinrate
	if s.Smurf, err = feed.ParseSmurfFilter(p.Smurf); err != nil {
		return s, err
	}
	return s, nil
}

func parseTier(field, raw string) (*rank.Tier, error) {
	if raw == "" {
		return nil, nil
	}
	t, ok := rank.ParseTier(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", model.ErrInvalidValue, field, raw)
	}
	return &t, nil
}

func parseDivision(field, raw string) (*rank.Division, error) {
	if raw == "" {
		return nil, nil
	}
	d, ok := rank.ParseDivision(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", model.ErrInvalidValue, field, raw)
	}
	return &d, nil
}

// payloadFromState renders a state back to its wire form.
func payloadFromState(s feed.FilterState) filterPayload {
	p := filterPayload{
		MinLP:      s.MinLP,
		MinWinrate: s.MinWinrate,
		MaxWinrate: s.MaxWinrate,
		Smurf:      s.Smurf.String(),
	}
	for _, r := range s.Regions {
		p.Regions = append(p.Regions, string(r))
	}
	for _, r := range s.Roles {
		p.Roles = append(p.Roles, string(r))
	}
	if s.VCPreference != nil {
		p.VC = string(*s.VCPreference)
	}
	if s.DuoType != nil {
		p.DuoType = string(*s.DuoType)
	}
	if s.MinRank != nil {
		p.MinRank = s.MinRank.String()
	}
	if s.MaxRank != nil {
		p.MaxRank = s.MaxRank.String()
	}
	if s.MinDivision != nil {
		p.MinDivision = s.MinDivision.String()
	}
	if s.MaxDivision != nil {
		p.MaxDivision = s.MaxDivision.String()
	}
	return p
}
