package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
	"github.com/pable/squad-standings/internal/source"
)

// fakeSource serves files from memory. Missing keys are unavailable; keys in
// slow block until the context is done.
type fakeSource struct {
	files map[model.MatchKey]string
	slow  map[model.MatchKey]bool
}

func (f *fakeSource) String() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, key model.MatchKey) (*source.File, error) {
	if f.slow[key] {
		<-ctx.Done()
		return nil, errors.Mark(ctx.Err(), source.ErrMatchUnavailable)
	}
	data, ok := f.files[key]
	if !ok {
		return nil, errors.Mark(errors.Newf("%s missing", key), source.ErrMatchUnavailable)
	}
	return &source.File{Name: key.String() + ".csv", Data: []byte(data)}, nil
}

const header = "Name,Kills,Damage Dealt,Assists,Win Place,Time Survived\n"

func k(round string, idx int) model.MatchKey {
	return model.MatchKey{Round: round, Index: idx}
}

func schedule() []model.Round {
	return []model.Round{
		{Label: "DIA1", Matches: []model.Match{
			{Key: k("DIA1", 1), Map: "Erangel"},
			{Key: k("DIA1", 2), Map: "Taego"},
		}},
		{Label: "DIA2", Matches: []model.Match{
			{Key: k("DIA2", 1), Map: "Vikendi"},
		}},
	}
}

// exampleRoster is TeamA: [p1, p2], TeamB: [p3].
func exampleRoster(t *testing.T) *roster.Index {
	t.Helper()
	idx, err := roster.Decode([]byte(`[
		{"nome": "TeamA", "jogadores": ["p1", "p2"]},
		{"nome": "TeamB", "jogadores": ["p3"]}
	]`))
	require.NoError(t, err)
	return idx
}

func newEngine(t *testing.T, src source.Source) *Engine {
	return New(StaticRoster(exampleRoster(t)), schedule(), src, Options{
		Workers:      3,
		FetchTimeout: 100 * time.Millisecond,
		Metrics:      metrics.New(),
	})
}

func teamTotals(res *Result) []model.TeamTotal {
	out := make([]model.TeamTotal, len(res.Teams))
	for i, s := range res.Teams {
		out[i] = s.TeamTotal
	}
	return out
}

func TestCompute_SingleMatchExample(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,0,1,1800\np3,1,100,0,2,1700\n",
	}}
	res, err := newEngine(t, src).Compute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	want := []model.TeamStanding{
		{Rank: 1, TeamTotal: model.TeamTotal{Team: "TeamA", Kills: 3, Points: 19, MatchesParticipated: 1}, Participated: true},
		{Rank: 2, TeamTotal: model.TeamTotal{Team: "TeamB", Kills: 1, Points: 14, MatchesParticipated: 1}, Participated: true},
	}
	if diff := cmp.Diff(want, res.Teams); diff != "" {
		t.Errorf("standings mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, res.Played())
	require.Len(t, res.Matches, 3)
	require.True(t, res.Matches[0].Available)
	require.Equal(t, "Erangel", res.Matches[0].Map)
	require.False(t, res.Matches[1].Available)
	require.Equal(t, "not yet played", res.Matches[1].Note)
}

func TestCompute_EmptySecondMatch(t *testing.T) {
	m1 := header + "p1,3,300,0,1,1800\np3,1,100,0,2,1700\n"
	withEmpty := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): m1,
		k("DIA1", 2): "",
	}}
	headerOnly := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): m1,
		k("DIA1", 2): header,
	}}
	alone := &fakeSource{files: map[model.MatchKey]string{k("DIA1", 1): m1}}

	var totals [][]model.TeamTotal
	for _, src := range []*fakeSource{withEmpty, headerOnly, alone} {
		res, err := newEngine(t, src).Compute(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, res.Played())
		totals = append(totals, teamTotals(res))
	}
	require.Equal(t, totals[2], totals[0])
	require.Equal(t, totals[2], totals[1])
	require.Equal(t, model.TeamTotal{Team: "TeamA", Kills: 3, Points: 19, MatchesParticipated: 1}, totals[0][0])
	require.Equal(t, model.TeamTotal{Team: "TeamB", Kills: 1, Points: 14, MatchesParticipated: 1}, totals[0][1])
}

func TestCompute_UnknownPlayerRowExcluded(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,0,1,1800\nstranger,12,900,0,1,1900\np3,1,100,0,2,1700\n",
	}}
	res, err := newEngine(t, src).Compute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 19, res.Teams[0].Points)
	require.Equal(t, 14, res.Teams[1].Points)
	require.Equal(t, 3, res.Matches[0].Rows)
	require.Equal(t, 1, res.Matches[0].Unresolved)
	for _, p := range res.Players {
		require.NotEqual(t, "stranger", p.Player)
	}
}

func TestCompute_SlowFetchDoesNotBlockRun(t *testing.T) {
	src := &fakeSource{
		files: map[model.MatchKey]string{k("DIA1", 1): header + "p1,2,10,0,5,100\n"},
		slow:  map[model.MatchKey]bool{k("DIA2", 1): true},
	}
	done := make(chan struct{})
	var res *Result
	var err error
	go func() {
		defer close(done)
		res, err = newEngine(t, src).Compute(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Compute did not finish")
	}
	require.NoError(t, err)
	require.False(t, res.Matches[2].Available)
	require.Equal(t, 1, res.Played())
}

func TestCompute_RosterFailureIsFatal(t *testing.T) {
	e := New(RosterFile("/nonexistent/times.json"), schedule(), &fakeSource{}, Options{})
	_, err := e.Compute(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, roster.ErrRosterLoad))
}

func TestCompute_PlayersAndHighlights(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,1,1,1800\np2,0,50,2,1,1500\np3,1,100,0,2,1700\n",
		k("DIA2", 1): header + "P1,1,120.5,0,4,900\np3,4,410,0,1,1900\n",
	}}
	res, err := newEngine(t, src).Compute(context.Background())
	require.NoError(t, err)

	var names []string
	for _, p := range res.Players {
		names = append(names, p.Player)
	}
	require.Equal(t, []string{"p3", "p1", "p2"}, names)
	require.Equal(t, 5, res.Players[0].Kills)
	require.Equal(t, 420.5, res.Players[1].Damage)
	require.Equal(t, 1, res.Players[1].BestPlacement)
	require.Equal(t, 2, res.Players[1].MatchesPlayed)

	require.Equal(t, "p3", res.Highlights.TopKills.Player)
	require.Equal(t, "p2", res.Highlights.TopAssists.Player)
	require.Equal(t, "p3", res.Highlights.TopDamage.Player)
}

func TestCompute_ConcurrentRunsAgree(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,0,1,1800\np3,1,100,0,2,1700\n",
		k("DIA1", 2): header + "p2,5,300,0,3,1800\np3,0,0,0,9,100\n",
		k("DIA2", 1): header + "p3,7,900,0,1,1900\n",
	}}
	e := newEngine(t, src)
	first, err := e.Compute(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Compute(context.Background())
			if err != nil {
				errs <- err.Error()
				return
			}
			if diff := cmp.Diff(teamTotals(first), teamTotals(res)); diff != "" {
				errs <- diff
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestLatestPlayed(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,0,1,1800\n",
		k("DIA1", 2): header + "p3,2,100,0,1,1700\n",
		k("DIA2", 1): "",
	}}
	view, err := newEngine(t, src).LatestPlayed(context.Background())
	require.NoError(t, err)
	require.Equal(t, k("DIA1", 2), view.Match.Key)
	require.Equal(t, "Taego", view.Match.Map)
	require.Equal(t, 2, view.Of)
	require.Len(t, view.Table, 2)
	require.Equal(t, "TeamB", view.Table[0].Team)
	require.Equal(t, 15+2+1, view.Table[0].Points)
	require.Equal(t, "TeamA", view.Table[1].Team)
	require.False(t, view.Table[1].Participated)

	_, err = newEngine(t, &fakeSource{}).LatestPlayed(context.Background())
	require.True(t, errors.Is(err, ErrNothingPlayed))
}

func TestMatch(t *testing.T) {
	src := &fakeSource{files: map[model.MatchKey]string{
		k("DIA1", 1): header + "p1,3,300,0,1,1800\np3,1,100,0,2,1700\n",
	}}
	e := newEngine(t, src)

	view, err := e.Match(context.Background(), k("dia1", 1))
	require.NoError(t, err)
	require.True(t, view.Status.Available)
	require.Equal(t, 19, view.Table[0].Points)

	view, err = e.Match(context.Background(), k("DIA2", 1))
	require.NoError(t, err)
	require.False(t, view.Status.Available)
	require.Len(t, view.Table, 2)
	for _, row := range view.Table {
		require.Zero(t, row.Points)
	}

	_, err = e.Match(context.Background(), k("DIA9", 1))
	require.True(t, errors.Is(err, ErrUnknownMatch))
}
