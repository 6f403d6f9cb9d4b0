// Package aggregator folds parsed match rows into per-team match results and
// cumulative tournament totals.
package aggregator

import (
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
	"github.com/pable/squad-standings/internal/scoring"
)

// teamMatch accumulates one team's rows within a single match.
type teamMatch struct {
	fielded      bool // at least one resolved row
	participated bool // a resolved row carried a placement or a kill
	kills        int
	best         int // 0 = no placement seen
}

func (tm teamMatch) result(name string) model.TeamMatchResult {
	return model.TeamMatchResult{
		Team:          name,
		Kills:         tm.kills,
		BestPlacement: tm.best,
		Participated:  tm.participated,
		Points:        scoring.Points(tm.best, tm.kills, tm.participated),
	}
}

// foldMatch groups rows by roster team. The returned slice is indexed by the
// team's roster position.
func foldMatch(rows []model.PlayerMatchRow, idx *roster.Index) []teamMatch {
	acc := make([]teamMatch, idx.Len())
	for _, r := range rows {
		ti, _, ok := idx.PlayerOrder(r.Player)
		if !ok {
			continue
		}
		tm := &acc[ti]
		tm.fielded = true
		if r.Kills > 0 {
			tm.kills += r.Kills
			tm.participated = true
		}
		if r.WinPlace > 0 {
			tm.participated = true
			if tm.best == 0 || r.WinPlace < tm.best {
				tm.best = r.WinPlace
			}
		}
	}
	return acc
}

// AggregateMatch returns one result per team that fielded at least one
// resolvable row, in roster order. Rows naming players outside the roster
// are ignored.
func AggregateMatch(rows []model.PlayerMatchRow, idx *roster.Index) []model.TeamMatchResult {
	teams := idx.Teams()
	var out []model.TeamMatchResult
	for i, tm := range foldMatch(rows, idx) {
		if tm.fielded {
			out = append(out, tm.result(teams[i].Name))
		}
	}
	return out
}

// MatchTable is AggregateMatch for display: every roster team is present and
// teams that fielded nobody show zero values.
func MatchTable(rows []model.PlayerMatchRow, idx *roster.Index) []model.TeamMatchResult {
	teams := idx.Teams()
	out := make([]model.TeamMatchResult, 0, len(teams))
	for i, tm := range foldMatch(rows, idx) {
		out = append(out, tm.result(teams[i].Name))
	}
	return out
}

// Unresolved returns the names of rows that match no roster player, in row
// order.
func Unresolved(rows []model.PlayerMatchRow, idx *roster.Index) []string {
	var out []string
	for _, r := range rows {
		if _, ok := idx.TeamOf(r.Player); !ok {
			out = append(out, r.Player)
		}
	}
	return out
}
