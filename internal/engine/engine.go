// Package engine runs one standings computation: every scheduled match is
// fetched concurrently, the fetch set is joined, each match is parsed and
// aggregated, and the results are folded and ranked.
//
// An Engine holds no state between runs. Compute may be called concurrently.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pable/squad-standings/internal/aggregator"
	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
	"github.com/pable/squad-standings/internal/source"
	"github.com/pable/squad-standings/internal/standings"
)

var tracer = otel.Tracer("squad-standings/internal/engine")

const defaultFetchTimeout = 10 * time.Second

// RosterFunc supplies the roster for a run.
type RosterFunc func(ctx context.Context) (*roster.Index, error)

// RosterFile reloads the roster file on every run.
func RosterFile(path string) RosterFunc {
	return func(context.Context) (*roster.Index, error) {
		return roster.Load(path)
	}
}

// StaticRoster always returns idx.
func StaticRoster(idx *roster.Index) RosterFunc {
	return func(context.Context) (*roster.Index, error) {
		if idx == nil {
			return nil, errors.Mark(errors.New("no roster"), roster.ErrRosterLoad)
		}
		return idx, nil
	}
}

// Options tune a computation. Zero values pick defaults.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// Engine computes standings for a fixed schedule.
type Engine struct {
	roster  RosterFunc
	rounds  []model.Round
	source  source.Source
	workers int
	timeout time.Duration
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New returns an engine over the given schedule and source.
func New(rosterFn RosterFunc, rounds []model.Round, src source.Source, opts Options) *Engine {
	e := &Engine{
		roster:  rosterFn,
		rounds:  rounds,
		source:  src,
		workers: opts.Workers,
		timeout: opts.FetchTimeout,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if e.workers <= 0 {
		e.workers = 4
	}
	if e.timeout <= 0 {
		e.timeout = defaultFetchTimeout
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	return e
}

// Rounds returns the schedule.
func (e *Engine) Rounds() []model.Round {
	return e.rounds
}

// Roster loads the roster the next run would use.
func (e *Engine) Roster(ctx context.Context) (*roster.Index, error) {
	idx, err := e.roster(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load roster")
	}
	return idx, nil
}

// Result is the output of one computation.
type Result struct {
	RunID      string                 `json:"run_id"`
	Teams      []model.TeamStanding   `json:"teams"`
	Players    []model.PlayerStanding `json:"players"`
	Highlights standings.Highlights   `json:"highlights"`
	Matches    []model.MatchStatus    `json:"matches"`
}

// Played returns how many scheduled matches had data.
func (r *Result) Played() int {
	n := 0
	for _, m := range r.Matches {
		if m.Available {
			n++
		}
	}
	return n
}

// fetchResult is one slot of the fetch phase.
type fetchResult struct {
	match model.Match
	file  *source.File
	err   error
}

// matchOutcome is one match after parsing.
type matchOutcome struct {
	status model.MatchStatus
	rows   []model.PlayerMatchRow
}

// Compute runs a full pass over every scheduled match. Only a roster failure
// is returned as an error; unavailable matches are reported in
// Result.Matches and contribute nothing.
func (e *Engine) Compute(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "engine.Compute", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()
	log := e.log.With("run_id", runID)
	start := time.Now()

	idx, err := e.Roster(ctx)
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "roster unavailable", "error", err)
		return nil, err
	}

	matches := e.scheduled()
	fetched, err := e.fetchAll(ctx, matches)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Parse and aggregate per match once every fetch has resolved.
	mapper := iter.Mapper[fetchResult, matchOutcome]{MaxGoroutines: e.workers}
	outcomes := mapper.Map(fetched, func(f *fetchResult) matchOutcome {
		return e.parse(ctx, log, idx, f)
	})

	t := aggregator.NewTournament(idx)
	res := &Result{RunID: runID, Matches: make([]model.MatchStatus, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.status.Available {
			t.AddMatch(o.rows)
		}
		res.Matches = append(res.Matches, o.status)
	}
	res.Teams = standings.RankTeams(t.Teams())
	res.Players = standings.RankPlayers(t.Players())
	res.Highlights = standings.ComputeHighlights(res.Players)

	elapsed := time.Since(start)
	e.metrics.Run(elapsed, res.Played())
	span.SetAttributes(attribute.Int("matches.played", res.Played()))
	log.InfoContext(ctx, "standings computed",
		"matches_scheduled", len(matches),
		"matches_played", res.Played(),
		"teams", len(res.Teams),
		"players", len(res.Players),
		"elapsed", elapsed,
	)
	return res, nil
}

func (e *Engine) scheduled() []model.Match {
	var out []model.Match
	for _, r := range e.rounds {
		out = append(out, r.Matches...)
	}
	return out
}

// fetchAll fetches every match on a bounded pool and waits for all of them.
// Slot i of the result belongs to matches[i].
func (e *Engine) fetchAll(ctx context.Context, matches []model.Match) ([]fetchResult, error) {
	results := make([]fetchResult, len(matches))
	if len(matches) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, m := range matches {
		i, m := i, m
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = e.fetch(ctx, m)
		}); err != nil {
			wg.Done()
			results[i] = fetchResult{match: m, err: errors.Mark(errors.Wrap(err, "submit fetch"), source.ErrMatchUnavailable)}
		}
	}
	wg.Wait()
	return results, nil
}

func (e *Engine) fetch(ctx context.Context, m model.Match) fetchResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "engine.fetch", trace.WithAttributes(attribute.String("match", m.Key.String())))
	defer span.End()

	f, err := e.source.Fetch(ctx, m.Key)
	if err != nil {
		span.RecordError(err)
	}
	return fetchResult{match: m, file: f, err: err}
}

func (e *Engine) parse(ctx context.Context, log *logging.Logger, idx *roster.Index, f *fetchResult) matchOutcome {
	status := model.MatchStatus{Key: f.match.Key, Map: f.match.Map}
	if f.err != nil {
		e.metrics.Fetch(metrics.FetchUnavailable)
		log.WarnContext(ctx, "match unavailable", "match", f.match.Key.String(), "error", f.err)
		status.Note = "not yet played"
		return matchOutcome{status: status}
	}

	rows, ok, err := parseFile(f.file)
	if err != nil {
		e.metrics.Fetch(metrics.FetchUnavailable)
		log.WarnContext(ctx, "match file unreadable", "match", f.match.Key.String(), "file", f.file.Name, "error", err)
		status.Note = "unsupported file"
		return matchOutcome{status: status}
	}
	if !ok {
		e.metrics.Fetch(metrics.FetchNoData)
		log.DebugContext(ctx, "match has no data", "match", f.match.Key.String())
		status.Note = "not yet played"
		return matchOutcome{status: status}
	}
	e.metrics.Fetch(metrics.FetchOK)

	unresolved := aggregator.Unresolved(rows, idx)
	for _, name := range unresolved {
		log.DebugContext(ctx, "row not on roster", "match", f.match.Key.String(), "player", name)
	}
	e.metrics.Unresolved(len(unresolved))

	status.Available = true
	status.Rows = len(rows)
	status.Unresolved = len(unresolved)
	return matchOutcome{status: status, rows: rows}
}
