package engine

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/aggregator"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/parser"
	"github.com/pable/squad-standings/internal/source"
	"github.com/pable/squad-standings/internal/standings"
)

var (
	// ErrUnknownMatch is returned for a key outside the schedule.
	ErrUnknownMatch = errors.New("match not in schedule")
	// ErrNothingPlayed is returned by LatestPlayed when no match has data.
	ErrNothingPlayed = errors.New("no match played yet")
)

// MatchView is the ranked table of one match.
type MatchView struct {
	Match  model.Match           `json:"match"`
	Of     int                   `json:"of"` // matches in the round
	Status model.MatchStatus     `json:"status"`
	Table  []model.MatchStanding `json:"table"`
}

func parseFile(f *source.File) ([]model.PlayerMatchRow, bool, error) {
	return parser.ParseFile(f.Name, f.Data)
}

// Match builds the table for one scheduled match. An unavailable match
// yields every team at zero, not an error.
func (e *Engine) Match(ctx context.Context, key model.MatchKey) (*MatchView, error) {
	m, of, ok := e.lookup(key)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMatch, "%s", key)
	}
	idx, err := e.Roster(ctx)
	if err != nil {
		return nil, err
	}
	fr := e.fetch(ctx, m)
	out := e.parse(ctx, e.log, idx, &fr)
	return &MatchView{
		Match:  m,
		Of:     of,
		Status: out.status,
		Table:  standings.RankMatch(aggregator.MatchTable(out.rows, idx)),
	}, nil
}

// LatestPlayed scans the schedule from the last match backwards and returns
// the table of the first match that has data.
func (e *Engine) LatestPlayed(ctx context.Context) (*MatchView, error) {
	idx, err := e.Roster(ctx)
	if err != nil {
		return nil, err
	}
	for ri := len(e.rounds) - 1; ri >= 0; ri-- {
		r := e.rounds[ri]
		for mi := len(r.Matches) - 1; mi >= 0; mi-- {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m := r.Matches[mi]
			fr := e.fetch(ctx, m)
			out := e.parse(ctx, e.log, idx, &fr)
			if !out.status.Available {
				continue
			}
			return &MatchView{
				Match:  m,
				Of:     len(r.Matches),
				Status: out.status,
				Table:  standings.RankMatch(aggregator.MatchTable(out.rows, idx)),
			}, nil
		}
	}
	return nil, ErrNothingPlayed
}

func (e *Engine) lookup(key model.MatchKey) (model.Match, int, bool) {
	for _, r := range e.rounds {
		if !strings.EqualFold(r.Label, key.Round) {
			continue
		}
		for _, m := range r.Matches {
			if m.Key.Index == key.Index {
				return m, len(r.Matches), true
			}
		}
	}
	return model.Match{}, 0, false
}
