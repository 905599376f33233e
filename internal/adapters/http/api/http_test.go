package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/duofeed/internal/adapters/http/api"
	service "github.com/okian/duofeed/internal/app"
	"github.com/okian/duofeed/internal/domain/ads"
	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/rank"
	"github.com/okian/duofeed/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	lastRegion  model.Region
	lastState   feed.FilterState
	lastVisible int
	lastID      string
	lastAdID    string
	lastEvent   model.ListingEvent
	dismissed   []string

	err       error
	ingestErr error
	ad        *model.Ad
}

func (m *mockDeps) view(id string) session.View {
	p := model.Post{ID: "p1", Region: model.RegionEUW, Role: model.RoleMid}
	return session.View{
		SessionID: id,
		Region:    m.lastRegion,
		Filters:   m.lastState,
		Posts:     []model.Post{p},
		Items:     []ads.FeedItem{{Kind: ads.KindPost, Post: &p}},
		Visible:   25,
		Total:     1,
	}
}

func (m *mockDeps) Feed(_ context.Context, region model.Region, state feed.FilterState, visible int) (session.View, error) {
	m.lastRegion, m.lastState, m.lastVisible = region, state, visible
	return m.view(""), m.err
}

func (m *mockDeps) CreateSession(_ context.Context, region model.Region, state feed.FilterState) (session.View, error) {
	m.lastRegion, m.lastState = region, state
	return m.view("s-1"), m.err
}

func (m *mockDeps) Session(_ context.Context, id string) (session.View, error) {
	m.lastID = id
	return m.view(id), m.err
}

func (m *mockDeps) ApplyFilters(_ context.Context, id string, state feed.FilterState) (session.View, error) {
	m.lastID, m.lastState = id, state
	v := m.view(id)
	v.Reset = true
	return v, m.err
}

func (m *mockDeps) LoadMore(_ context.Context, id string) (session.View, error) {
	m.lastID = id
	return m.view(id), m.err
}

func (m *mockDeps) DismissAd(_ context.Context, id, adID string) (session.View, error) {
	m.lastID, m.lastAdID = id, adID
	return m.view(id), m.err
}

func (m *mockDeps) DeleteSession(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

func (m *mockDeps) PickAd(region model.Region, _ int, dismissed []string) *model.Ad {
	m.lastRegion, m.dismissed = region, dismissed
	return m.ad
}

func (m *mockDeps) Ingest(_ context.Context, ev model.ListingEvent) error {
	m.lastEvent = ev
	return m.ingestErr
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API router", t, func() {
		deps := &mockDeps{}
		stats := &mockStatsProvider{stats: map[string]any{"started": true}}
		router := api.NewServer(deps, stats).Router(nil)

		Convey("When the health endpoint is scraped", func() {
			w := do(router, http.MethodGet, "/healthz", "")

			Convey("Then prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "duofeed_")
			})
		})

		Convey("When stats are requested", func() {
			w := do(router, http.MethodGet, "/stats", "")

			Convey("Then the provider's stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["started"], ShouldEqual, true)
			})
		})

		Convey("When an unknown route is requested", func() {
			w := do(router, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a preflight request arrives", func() {
			req := httptest.NewRequest(http.MethodOptions, "/feed", nil)
			req.Header.Set("Origin", "https://example.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then CORS headers are set", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldNotBeEmpty)
			})
		})
	})
}

func TestFeedHandler(t *testing.T) {
	Convey("Given an API router", t, func() {
		deps := &mockDeps{}
		router := api.NewServer(deps, &mockStatsProvider{}).Router(nil)

		Convey("When the feed is requested with every filter", func() {
			w := do(router, http.MethodGet,
				"/feed?region=euw,na&role=MID&role=support&vc=never&duo_type=BOTH&min_rank=gold&max_rank=challenger"+
					"&min_division=3&max_division=I&min_lp=100&min_winrate=50&max_winrate=70.5&smurf=only&visible=50&viewer_region=KR", "")

			Convey("Then the parsed state reaches the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				s := deps.lastState
				So(s.Regions, ShouldResemble, []model.Region{model.RegionEUW, model.RegionNA})
				So(s.Roles, ShouldResemble, []model.Role{model.RoleMid, model.RoleSupport})
				So(*s.VCPreference, ShouldEqual, model.VCNever)
				So(*s.DuoType, ShouldEqual, model.DuoBoth)
				So(*s.MinRank, ShouldEqual, rank.Gold)
				So(*s.MaxRank, ShouldEqual, rank.MasterPlus)
				So(*s.MinDivision, ShouldEqual, rank.DivisionIII)
				So(*s.MaxDivision, ShouldEqual, rank.DivisionI)
				So(*s.MinLP, ShouldEqual, 100)
				So(*s.MinWinrate, ShouldEqual, 50.0)
				So(*s.MaxWinrate, ShouldEqual, 70.5)
				So(s.Smurf, ShouldEqual, feed.SmurfOnly)
				So(deps.lastVisible, ShouldEqual, 50)
				So(deps.lastRegion, ShouldEqual, model.RegionKR)
			})

			Convey("Then the page echoes the filters", func() {
				body := decode(w)
				filters := body["filters"].(map[string]any)
				So(filters["min_rank"], ShouldEqual, "GOLD")
				So(filters["max_rank"], ShouldEqual, "MASTER_PLUS")
				So(filters["smurf"], ShouldEqual, "only")
				So(body["items"], ShouldHaveLength, 1)
				So(body["total"], ShouldEqual, 1.0)
			})
		})

		Convey("When no filters are given", func() {
			w := do(router, http.MethodGet, "/feed", "")

			Convey("Then an empty state and default window are used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastState.IsZero(), ShouldBeTrue)
				So(deps.lastVisible, ShouldEqual, 0)
			})
		})

		Convey("When filters are malformed", func() {
			for _, q := range []string{
				"region=ATLANTIS",
				"min_rank=WOOD",
				"min_division=V",
				"min_lp=many",
				"min_lp=-5",
				"min_winrate=140",
				"smurf=sometimes",
				"smurf=only_smurfs",
				"visible=-1",
				"viewer_region=MOON",
			} {
				w := do(router, http.MethodGet, "/feed?"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the source is down", func() {
			deps.err = session.ErrSource
			w := do(router, http.MethodGet, "/feed", "")

			Convey("Then a bad gateway is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decode(w)["code"], ShouldEqual, "source_unavailable")
			})
		})
	})
}

func TestSessionsHandler(t *testing.T) {
	Convey("Given an API router", t, func() {
		deps := &mockDeps{}
		router := api.NewServer(deps, &mockStatsProvider{}).Router(nil)

		Convey("When a session is created", func() {
			w := do(router, http.MethodPost, "/sessions",
				`{"viewer_region":"euw","filters":{"role":["ADC"],"min_winrate":55}}`)

			Convey("Then it is created with the parsed filters", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Header().Get("Location"), ShouldEqual, "/sessions/s-1")
				So(deps.lastRegion, ShouldEqual, model.RegionEUW)
				So(deps.lastState.Roles, ShouldResemble, []model.Role{model.RoleADC})
				So(*deps.lastState.MinWinrate, ShouldEqual, 55.0)
				So(decode(w)["session_id"], ShouldEqual, "s-1")
			})
		})

		Convey("When the create body is invalid", func() {
			So(do(router, http.MethodPost, "/sessions", ``).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/sessions", `{"filters":{}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/sessions", `{"viewer_region":"EUW","colour":"red"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/sessions", `{"viewer_region":"EUW","filters":{"max_winrate":101}}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a session page is read", func() {
			w := do(router, http.MethodGet, "/sessions/abc", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastID, ShouldEqual, "abc")
		})

		Convey("When filters are replaced", func() {
			w := do(router, http.MethodPut, "/sessions/abc/filters", `{"min_rank":"PLATINUM","smurf":"none"}`)

			Convey("Then the reset page is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(*deps.lastState.MinRank, ShouldEqual, rank.Platinum)
				So(deps.lastState.Smurf, ShouldEqual, feed.SmurfNone)
				So(decode(w)["reset"], ShouldEqual, true)
			})
		})

		Convey("When smurf values arrive in a JSON body", func() {
			accepted := do(router, http.MethodPut, "/sessions/abc/filters", `{"smurf":"ONLY"}`)
			So(accepted.Code, ShouldEqual, http.StatusOK)
			So(deps.lastState.Smurf, ShouldEqual, feed.SmurfOnly)

			Convey("Then values outside all, only and none are rejected", func() {
				for _, v := range []string{"only_smurfs", "nosmurfs", "sometimes"} {
					w := do(router, http.MethodPut, "/sessions/abc/filters", `{"smurf":"`+v+`"}`)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
				}
			})
		})

		Convey("When more posts are requested", func() {
			So(do(router, http.MethodPost, "/sessions/abc/more", "").Code, ShouldEqual, http.StatusOK)

			Convey("And there are none left", func() {
				deps.err = session.ErrNoMorePosts
				w := do(router, http.MethodPost, "/sessions/abc/more", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "no_more_posts")
			})
		})

		Convey("When an ad is dismissed", func() {
			w := do(router, http.MethodPost, "/sessions/abc/ads/ad-9/dismiss", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastAdID, ShouldEqual, "ad-9")
		})

		Convey("When a session is deleted", func() {
			w := do(router, http.MethodDelete, "/sessions/abc", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("When the session is unknown", func() {
			deps.err = session.ErrNotFound
			w := do(router, http.MethodGet, "/sessions/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w := do(router, http.MethodGet, "/sessions/abc", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestAdsHandler(t *testing.T) {
	Convey("Given an API router with one ad", t, func() {
		deps := &mockDeps{ad: &model.Ad{ID: "ad-1", Title: "Coaching"}}
		router := api.NewServer(deps, &mockStatsProvider{}).Router(nil)

		Convey("When a slot is requested", func() {
			w := do(router, http.MethodGet, "/ads/slot?position=4&region=EUW&dismissed=a,b", "")

			Convey("Then the picked ad is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["position"], ShouldEqual, 4.0)
				So(body["ad"].(map[string]any)["id"], ShouldEqual, "ad-1")
				So(deps.dismissed, ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When nothing is eligible", func() {
			deps.ad = nil
			w := do(router, http.MethodGet, "/ads/slot?position=3&region=EUW", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["ad"], ShouldBeNil)
		})

		Convey("When the query is invalid", func() {
			So(do(router, http.MethodGet, "/ads/slot?region=EUW", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodGet, "/ads/slot?position=1", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPostsHandler(t *testing.T) {
	Convey("Given an API router", t, func() {
		deps := &mockDeps{}
		router := api.NewServer(deps, &mockStatsProvider{}).Router(nil)
		body := `{"event_id":"e1","op":"upsert","ts":"2026-05-01T10:00:00Z",
			"post":{"id":"p1","region":"EUW","role":"MID","vc_preference":"NEVER","duo_type":"BOTH",
			"posting_account":{"game_name":"a","tag_line":"b","rank":"GOLD"}}}`

		Convey("When a listing event is accepted", func() {
			w := do(router, http.MethodPost, "/posts", body)

			Convey("Then it is passed to ingest", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "accepted")
				So(deps.lastEvent.EventID, ShouldEqual, "e1")
				So(deps.lastEvent.Op, ShouldEqual, model.OpUpsert)
				So(deps.lastEvent.Post.PostingAccount.Rank, ShouldEqual, "GOLD")
				So(deps.lastEvent.TS.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the event time is not RFC 3339", func() {
			w := do(router, http.MethodPost, "/posts",
				`{"event_id":"e2","op":"delete","ts":"2026-05-01 10:00","post":{"id":"p1"}}`)

			Convey("Then it is rejected before ingest", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode(w)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldContainSubstring, "ts must be RFC 3339")
				So(deps.lastEvent.EventID, ShouldBeEmpty)
			})
		})

		Convey("When the event is a duplicate", func() {
			deps.ingestErr = service.ErrDuplicateEvent
			w := do(router, http.MethodPost, "/posts", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["duplicate"], ShouldEqual, true)
		})

		Convey("When the queue is full", func() {
			deps.ingestErr = service.ErrBackpressure
			w := do(router, http.MethodPost, "/posts", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the source is read only", func() {
			deps.ingestErr = service.ErrReadOnlySource
			So(do(router, http.MethodPost, "/posts", body).Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When the event fails validation", func() {
			So(do(router, http.MethodPost, "/posts", `{"op":"upsert","post":{"id":"p1"}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/posts", `{"event_id":"e","op":"merge","post":{"id":"p1"}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/posts", `{"event_id":"e","op":"delete","ts":"yesterday","post":{"id":"p1"}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/posts", `{"event_id":"e","op":"delete"}{}`).Code, ShouldEqual, http.StatusBadRequest)

			deps.ingestErr = service.ErrInvalidEvent
			So(do(router, http.MethodPost, "/posts", body).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
