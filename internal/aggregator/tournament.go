package aggregator

import (
	"math"

	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/roster"
)

// Tournament accumulates team and player totals over any number of matches.
// The fold only adds integers, so totals do not depend on the order matches
// are added in. A Tournament is not safe for concurrent use.
type Tournament struct {
	idx     *roster.Index
	teams   []teamSum
	players map[playerKey]*playerSum
	matches int
}

type teamSum struct {
	kills   int
	points  int
	matches int
}

type playerKey struct {
	team, pos int
}

// playerSum keeps damage and survival time in hundredths so float addition
// order cannot leak into the totals.
type playerSum struct {
	kills     int
	assists   int
	headshots int
	damage    int64
	survival  int64
	matches   int
	best      int
}

// NewTournament returns an empty accumulator over the given roster.
func NewTournament(idx *roster.Index) *Tournament {
	return &Tournament{
		idx:     idx,
		teams:   make([]teamSum, idx.Len()),
		players: make(map[playerKey]*playerSum),
	}
}

// FoldTournament adds every match in order and returns the result.
func FoldTournament(idx *roster.Index, matches ...[]model.PlayerMatchRow) *Tournament {
	t := NewTournament(idx)
	for _, rows := range matches {
		t.AddMatch(rows)
	}
	return t
}

// AddMatch folds one match. A match without rows is not-yet-played and leaves
// the totals untouched; AddMatch reports whether anything was added.
func (t *Tournament) AddMatch(rows []model.PlayerMatchRow) bool {
	if len(rows) == 0 {
		return false
	}
	t.matches++

	// ---- Teams ----
	for i, tm := range foldMatch(rows, t.idx) {
		if !tm.participated {
			continue
		}
		res := tm.result("")
		t.teams[i].kills += res.Kills
		t.teams[i].points += res.Points
		t.teams[i].matches++
	}

	// ---- Players ----
	seen := make(map[playerKey]bool)
	for _, r := range rows {
		ti, pi, ok := t.idx.PlayerOrder(r.Player)
		if !ok {
			continue
		}
		key := playerKey{team: ti, pos: pi}
		ps := t.players[key]
		if ps == nil {
			ps = &playerSum{}
			t.players[key] = ps
		}
		if !seen[key] {
			seen[key] = true
			ps.matches++
		}
		ps.kills += r.Kills
		ps.assists += r.Assists
		ps.headshots += r.HeadshotKills
		ps.damage += hundredths(r.Damage)
		ps.survival += hundredths(r.SurvivalTime)
		if r.WinPlace > 0 && (ps.best == 0 || r.WinPlace < ps.best) {
			ps.best = r.WinPlace
		}
	}
	return true
}

// Matches returns how many non-empty matches were added.
func (t *Tournament) Matches() int { return t.matches }

// Teams returns a total for every roster team, in roster order. Teams that
// never participated carry zero values.
func (t *Tournament) Teams() []model.TeamTotal {
	teams := t.idx.Teams()
	out := make([]model.TeamTotal, len(teams))
	for i, team := range teams {
		out[i] = model.TeamTotal{
			Team:                team.Name,
			Kills:               t.teams[i].kills,
			Points:              t.teams[i].points,
			MatchesParticipated: t.teams[i].matches,
		}
	}
	return out
}

// Players returns totals for every roster player that appeared in at least
// one added match, in roster order.
func (t *Tournament) Players() []model.PlayerTotal {
	var out []model.PlayerTotal
	for ti, team := range t.idx.Teams() {
		for pi, p := range team.Players {
			ps, ok := t.players[playerKey{team: ti, pos: pi}]
			if !ok {
				continue
			}
			out = append(out, model.PlayerTotal{
				Player:        p.Name,
				Team:          team.Name,
				Kills:         ps.kills,
				Damage:        fromHundredths(ps.damage),
				Assists:       ps.assists,
				SurvivalTime:  fromHundredths(ps.survival),
				HeadshotKills: ps.headshots,
				MatchesPlayed: ps.matches,
				BestPlacement: ps.best,
			})
		}
	}
	return out
}

// hundredths converts v to fixed point, clamping to [0, math.MaxInt32] so a
// bogus row cannot wrap the running sum.
func hundredths(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v > math.MaxInt32:
		v = math.MaxInt32
	}
	return int64(math.Round(v * 100))
}

func fromHundredths(v int64) float64 {
	return float64(v) / 100
}
