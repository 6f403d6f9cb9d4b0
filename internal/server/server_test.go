package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/pable/squad-standings/internal/engine"
	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
	"github.com/pable/squad-standings/internal/source"
	"github.com/pable/squad-standings/internal/standings"
)

const header = "Name,Kills,Damage Dealt,Assists,Win Place,Time Survived\n"

func schedule() []model.Round {
	return []model.Round{
		{Label: "DIA1", Matches: []model.Match{
			{Key: model.MatchKey{Round: "DIA1", Index: 1}, Map: "Erangel"},
			{Key: model.MatchKey{Round: "DIA1", Index: 2}, Map: "Taego"},
		}},
	}
}

// newTestServer serves TeamA [p1, p2] and TeamB [p3] with DIA1 match 1
// played and match 2 pending.
func newTestServer(t *testing.T, rosterFn engine.RosterFunc) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "DIA1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "DIA1", "jogo1.csv"),
		[]byte(header+"p1,3,300,0,1,1800\np2,0,20,4,1,1700\np3,1,100,0,2,1700\n"), 0o644))

	if rosterFn == nil {
		idx, err := roster.Decode([]byte(`[
			{"nome": "TeamA", "jogadores": ["p1 (C)", "p2"]},
			{"nome": "TeamB", "jogadores": ["p3"]}
		]`))
		require.NoError(t, err)
		rosterFn = engine.StaticRoster(idx)
	}

	m := metrics.New()
	src := source.NewDir(root, source.Layout{Template: "{round}/jogo{match}.csv"})
	eng := engine.New(rosterFn, schedule(), src, engine.Options{Workers: 2, Metrics: m})
	ts := httptest.NewServer(New(eng, m, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, sonic.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, get(t, ts, "/healthz", nil))
}

func TestRequestsAreLoggedAsJSON(t *testing.T) {
	var buf bytes.Buffer
	h := New(nil, nil, logging.NewJSONTo(&buf, logging.LevelInfo)).Handler()

	for _, path := range []string{"/healthz", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	want := []struct {
		path   string
		status int
	}{{"/healthz", http.StatusOK}, {"/nope", http.StatusNotFound}}
	for i, line := range lines {
		var entry map[string]any
		require.NoError(t, sonic.UnmarshalString(line, &entry), line)
		require.Equal(t, "http request", entry["msg"])
		require.Equal(t, want[i].path, entry["path"])
		require.EqualValues(t, want[i].status, entry["status"])
		require.NotEmpty(t, entry["request_id"])
	}
}

func TestGetStandings(t *testing.T) {
	ts := newTestServer(t, nil)

	var res standingsResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/standings", &res))
	require.NotEmpty(t, res.RunID)
	require.Equal(t, 1, res.Played)
	require.Len(t, res.Teams, 2)
	require.Equal(t, "TeamA", res.Teams[0].Team)
	require.Equal(t, 19, res.Teams[0].Points)
	require.Equal(t, "TeamB", res.Teams[1].Team)
	require.Equal(t, 14, res.Teams[1].Points)
	require.Len(t, res.Matches, 2)
	require.False(t, res.Matches[1].Available)

	require.Equal(t, http.StatusOK, get(t, ts, "/standings?sort=team&order=desc", &res))
	require.Equal(t, "TeamB", res.Teams[0].Team)

	require.Equal(t, http.StatusBadRequest, get(t, ts, "/standings?sort=elo", nil))
	require.Equal(t, http.StatusBadRequest, get(t, ts, "/standings?order=sideways", nil))
}

func TestGetPlayers(t *testing.T) {
	ts := newTestServer(t, nil)

	var players []model.PlayerStanding
	require.Equal(t, http.StatusOK, get(t, ts, "/players", &players))
	require.Len(t, players, 3)
	require.Equal(t, "p1", players[0].Player)
	require.Equal(t, 1, players[0].Rank)

	require.Equal(t, http.StatusOK, get(t, ts, "/players?sort=assists", &players))
	require.Equal(t, "p2", players[0].Player)

	require.Equal(t, http.StatusOK, get(t, ts, "/players?sort=damage&order=asc", &players))
	require.Equal(t, "p2", players[0].Player)
	require.Equal(t, "p1", players[2].Player)

	require.Equal(t, http.StatusBadRequest, get(t, ts, "/players?sort=kd", nil))
}

func TestGetHighlights(t *testing.T) {
	ts := newTestServer(t, nil)

	var h standings.Highlights
	require.Equal(t, http.StatusOK, get(t, ts, "/highlights", &h))
	require.Equal(t, "p1", h.TopKills.Player)
	require.Equal(t, "p2", h.TopAssists.Player)
	require.Equal(t, "p1", h.TopDamage.Player)
}

func TestGetTeams(t *testing.T) {
	ts := newTestServer(t, nil)

	var teams []model.Team
	require.Equal(t, http.StatusOK, get(t, ts, "/teams", &teams))
	require.Len(t, teams, 2)
	require.True(t, teams[0].Players[0].Captain)

	require.Equal(t, http.StatusOK, get(t, ts, "/teams?search=P3", &teams))
	require.Len(t, teams, 1)
	require.Equal(t, "TeamB", teams[0].Name)

	require.Equal(t, http.StatusOK, get(t, ts, "/teams?search=nobody", &teams))
	require.NotNil(t, teams)
	require.Empty(t, teams)
}

func TestGetMatches(t *testing.T) {
	ts := newTestServer(t, nil)

	var view engine.MatchView
	require.Equal(t, http.StatusOK, get(t, ts, "/matches/latest", &view))
	require.Equal(t, model.MatchKey{Round: "DIA1", Index: 1}, view.Match.Key)
	require.Equal(t, 2, view.Of)
	require.Equal(t, "TeamA", view.Table[0].Team)

	view = engine.MatchView{}
	require.Equal(t, http.StatusOK, get(t, ts, "/matches/DIA1/2", &view))
	require.False(t, view.Status.Available)
	require.Len(t, view.Table, 2)
	require.Zero(t, view.Table[0].Points)

	require.Equal(t, http.StatusNotFound, get(t, ts, "/matches/DIA7/1", nil))
	require.Equal(t, http.StatusBadRequest, get(t, ts, "/matches/DIA1/zero", nil))
	require.Equal(t, http.StatusBadRequest, get(t, ts, "/matches/DIA1/0", nil))
}

func TestRosterFailure(t *testing.T) {
	ts := newTestServer(t, engine.RosterFile(filepath.Join(t.TempDir(), "missing.json")))
	require.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/standings", nil))
	require.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/teams", nil))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, get(t, ts, "/standings", nil))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "standings_computations_total 1"), string(body))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(nil, metrics.New(), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
