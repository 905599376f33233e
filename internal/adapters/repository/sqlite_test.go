package repository

import (
	"context"
	"testing"
	"time"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	in := fixturePost("p1", model.RegionEUW, model.RoleMid, time.Minute)
	div := "II"
	wr := 53.5
	in.BestRankAccount = &model.Account{GameName: "main", TagLine: "EUW", Rank: "DIAMOND", Division: &div, Winrate: &wr}
	require.NoError(t, s.Upsert(ctx, in))

	got, err := s.Query(ctx, feed.Prefilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	out := got[0]
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Region, out.Region)
	assert.Equal(t, in.Message, out.Message)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.NotNil(t, out.PostingAccount)
	assert.Equal(t, 420, *out.PostingAccount.LP)
	assert.Nil(t, out.PostingAccount.Division)
	require.NotNil(t, out.BestRankAccount)
	assert.Equal(t, "II", *out.BestRankAccount.Division)
	assert.Equal(t, 53.5, *out.BestRankAccount.Winrate)
}

func TestSQLiteStore_NullAccounts(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p := fixturePost("anon", model.RegionNA, model.RoleTop, 0)
	p.PostingAccount = nil
	require.NoError(t, s.Upsert(ctx, p))

	got, err := s.Query(ctx, feed.Prefilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].PostingAccount)
	assert.Nil(t, got[0].BestRankAccount)
}

func TestSQLiteStore_QueryAppliesPrefilter(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	for _, p := range fixturePosts() {
		require.NoError(t, s.Upsert(ctx, p))
	}

	all, err := s.Query(ctx, feed.Prefilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-na-top", "mid-euw-adc", "kr-sup", "old-euw-mid"}, postIDs(all))

	duo := model.DuoLongTerm
	got, err := s.Query(ctx, feed.Prefilter{
		Regions: []model.Region{model.RegionEUW, model.RegionKR},
		Roles:   []model.Role{model.RoleADC, model.RoleSupport},
		DuoType: &duo,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid-euw-adc", "kr-sup"}, postIDs(got))

	vc := model.VCAlways
	got, err = s.Query(ctx, feed.Prefilter{VCPreference: &vc})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_MatchesMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	mem := NewMemoryStore(ctx, WithPosts(fixturePosts()))
	t.Cleanup(func() { _ = mem.Close() })
	for _, p := range fixturePosts() {
		require.NoError(t, s.Upsert(ctx, p))
	}

	vc := model.VCSometimes
	for _, pf := range []feed.Prefilter{
		{},
		{Regions: []model.Region{model.RegionEUW}},
		{Roles: []model.Role{model.RoleTop, model.RoleSupport}},
		{VCPreference: &vc, Regions: []model.Region{model.RegionNA, model.RegionKR}},
	} {
		fromSQL, err := s.Query(ctx, pf)
		require.NoError(t, err)
		fromMem, err := mem.Query(ctx, pf)
		require.NoError(t, err)
		assert.Equal(t, postIDs(fromMem), postIDs(fromSQL), "prefilter %s", pf.Key())
	}
}

func TestSQLiteStore_VersionAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	v0, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v0)

	p := fixturePost("p1", model.RegionEUW, model.RoleMid, 0)
	require.NoError(t, s.Upsert(ctx, p))
	p.Message = "edited"
	require.NoError(t, s.Upsert(ctx, p))

	v2, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
	v, _ := s.Version(ctx)
	assert.Equal(t, v2, v, "failed delete rolls back the version bump")

	require.NoError(t, s.Delete(ctx, "p1"))
	v, _ = s.Version(ctx)
	assert.Equal(t, uint64(3), v)

	assert.ErrorIs(t, s.Upsert(ctx, model.Post{}), ErrInvalid)
}
