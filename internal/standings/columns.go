package standings

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/model"
)

// TeamColumn names a sortable team standings column.
type TeamColumn string

const (
	TeamRank    TeamColumn = "rank"
	TeamName    TeamColumn = "team"
	TeamKills   TeamColumn = "kills"
	TeamPoints  TeamColumn = "points"
	TeamMatches TeamColumn = "matches"
)

// PlayerColumn names a sortable player leaderboard column.
type PlayerColumn string

const (
	PlayerRank      PlayerColumn = "rank"
	PlayerName      PlayerColumn = "player"
	PlayerTeam      PlayerColumn = "team"
	PlayerKills     PlayerColumn = "kills"
	PlayerAssists   PlayerColumn = "assists"
	PlayerDamage    PlayerColumn = "damage"
	PlayerSurvival  PlayerColumn = "survival"
	PlayerHeadshots PlayerColumn = "headshots"
	PlayerBestPlace PlayerColumn = "best_place"
)

var teamColumns = []TeamColumn{TeamRank, TeamName, TeamKills, TeamPoints, TeamMatches}

var playerColumns = []PlayerColumn{
	PlayerRank, PlayerName, PlayerTeam, PlayerKills, PlayerAssists,
	PlayerDamage, PlayerSurvival, PlayerHeadshots, PlayerBestPlace,
}

// ParseTeamColumn validates a column name. Empty means rank.
func ParseTeamColumn(s string) (TeamColumn, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TeamRank, nil
	}
	for _, c := range teamColumns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownColumn, "team column %q", s)
}

// ParsePlayerColumn validates a column name. Empty means rank.
func ParsePlayerColumn(s string) (PlayerColumn, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PlayerRank, nil
	}
	for _, c := range playerColumns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownColumn, "player column %q", s)
}

// DefaultDesc reports the natural direction: text and rank ascending,
// counters descending.
func (c TeamColumn) DefaultDesc() bool {
	return c != TeamRank && c != TeamName
}

// DefaultDesc reports the natural direction: text, rank and placement
// ascending, counters descending.
func (c PlayerColumn) DefaultDesc() bool {
	switch c {
	case PlayerRank, PlayerName, PlayerTeam, PlayerBestPlace:
		return false
	}
	return true
}

// SortTeams returns rows re-ordered by one column. Ties fall back to rank so
// the default chain decides between equal values. Ranks are not rewritten.
func SortTeams(rows []model.TeamStanding, col TeamColumn, desc bool) []model.TeamStanding {
	out := make([]model.TeamStanding, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch col {
		case TeamName:
			c = compareText(a.Team, b.Team)
		case TeamKills:
			c = compare(a.Kills, b.Kills)
		case TeamPoints:
			c = compare(a.Points, b.Points)
		case TeamMatches:
			c = compare(a.MatchesParticipated, b.MatchesParticipated)
		}
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.Rank < b.Rank
	})
	return out
}

// SortPlayers returns rows re-ordered by one column, ties broken by rank.
// A best place of 0 (never placed) sorts after every real placement.
func SortPlayers(rows []model.PlayerStanding, col PlayerColumn, desc bool) []model.PlayerStanding {
	out := make([]model.PlayerStanding, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch col {
		case PlayerName:
			c = compareText(a.Player, b.Player)
		case PlayerTeam:
			c = compareText(a.Team, b.Team)
		case PlayerKills:
			c = compare(a.Kills, b.Kills)
		case PlayerAssists:
			c = compare(a.Assists, b.Assists)
		case PlayerDamage:
			c = compare(a.Damage, b.Damage)
		case PlayerSurvival:
			c = compare(a.SurvivalTime, b.SurvivalTime)
		case PlayerHeadshots:
			c = compare(a.HeadshotKills, b.HeadshotKills)
		case PlayerBestPlace:
			c = compare(placeKey(a.BestPlacement), placeKey(b.BestPlacement))
		}
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.Rank < b.Rank
	})
	return out
}

func placeKey(p int) int {
	if p <= 0 {
		return int(^uint(0) >> 1)
	}
	return p
}

func compare[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareText(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
