// Package standings ranks aggregated totals for presentation.
//
// Team standings order by points then kills; player leaderboards order by
// kills, assists, damage and name. Every sort is stable and ranks are the
// 1-based position in the default order.
package standings

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/model"
)

// ErrUnknownColumn is returned when a sort column name is not recognised.
var ErrUnknownColumn = errors.New("unknown sort column")

// RankTeams orders totals by points desc then kills desc. Teams tied on both
// keep their input order.
func RankTeams(totals []model.TeamTotal) []model.TeamStanding {
	sorted := make([]model.TeamTotal, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return teamLess(sorted[i].Points, sorted[i].Kills, sorted[j].Points, sorted[j].Kills)
	})
	out := make([]model.TeamStanding, len(sorted))
	for i, t := range sorted {
		out[i] = model.TeamStanding{
			Rank:         i + 1,
			TeamTotal:    t,
			Participated: t.MatchesParticipated > 0,
		}
	}
	return out
}

// RankMatch ranks one match's table with the same rule as RankTeams.
func RankMatch(results []model.TeamMatchResult) []model.MatchStanding {
	sorted := make([]model.TeamMatchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return teamLess(sorted[i].Points, sorted[i].Kills, sorted[j].Points, sorted[j].Kills)
	})
	out := make([]model.MatchStanding, len(sorted))
	for i, r := range sorted {
		out[i] = model.MatchStanding{Rank: i + 1, TeamMatchResult: r}
	}
	return out
}

func teamLess(pointsA, killsA, pointsB, killsB int) bool {
	if pointsA != pointsB {
		return pointsA > pointsB
	}
	return killsA > killsB
}

// RankPlayers orders totals by kills desc, assists desc, damage desc, then
// player name ascending.
func RankPlayers(totals []model.PlayerTotal) []model.PlayerStanding {
	sorted := make([]model.PlayerTotal, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return playerLess(sorted[i], sorted[j])
	})
	out := make([]model.PlayerStanding, len(sorted))
	for i, p := range sorted {
		out[i] = model.PlayerStanding{Rank: i + 1, PlayerTotal: p}
	}
	return out
}

func playerLess(a, b model.PlayerTotal) bool {
	switch {
	case a.Kills != b.Kills:
		return a.Kills > b.Kills
	case a.Assists != b.Assists:
		return a.Assists > b.Assists
	case a.Damage != b.Damage:
		return a.Damage > b.Damage
	default:
		return strings.ToLower(a.Player) < strings.ToLower(b.Player)
	}
}
