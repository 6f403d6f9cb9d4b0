package model

import "fmt"

// ---- Roster ----

// Player is one registered squad member. Name is the cleaned display nickname
// (decorations such as the captain marker already stripped).
type Player struct {
	Name    string  `json:"name"`
	Team    string  `json:"team"`
	Captain bool    `json:"captain,omitempty"`
	Pending bool    `json:"pending,omitempty"` // registration not yet confirmed
	KD      float64 `json:"kd,omitempty"`      // recent K/D from op.gg; roster metadata only
}

// Team is a registered squad. Players keeps roster order.
type Team struct {
	Name    string         `json:"name"`
	Tag     string         `json:"tag"`
	Logo    string         `json:"logo,omitempty"`
	Captain string         `json:"captain,omitempty"`
	Status  string         `json:"status,omitempty"` // registration status as published
	Players []Player       `json:"players"`
	Changes []Substitution `json:"changes,omitempty"`
}

// Substitution is one roster change: In joined the squad, Out left it.
type Substitution struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// ---- Schedule ----

// MatchKey addresses one match file: round label plus 1-based match index.
type MatchKey struct {
	Round string `json:"round"`
	Index int    `json:"index"`
}

func (k MatchKey) String() string {
	return fmt.Sprintf("%s/%d", k.Round, k.Index)
}

// Match is one game within a round.
type Match struct {
	Key MatchKey `json:"key"`
	Map string   `json:"map,omitempty"`
}

// Round is one competition day.
type Round struct {
	Label   string
	Matches []Match
}

// ---- Parsed match data ----

// PlayerMatchRow is one player's line in a match result file.
// WinPlace 0 means the placement was absent or unparseable.
type PlayerMatchRow struct {
	Player        string
	Kills         int
	Damage        float64
	Assists       int
	SurvivalTime  float64 // seconds
	WinPlace      int
	HeadshotKills int
}

// ---- Aggregated results ----

// TeamMatchResult is a team's outcome in one match.
// BestPlacement 0 means no resolved row carried a placement.
type TeamMatchResult struct {
	Team          string `json:"team"`
	Kills         int    `json:"kills"`
	BestPlacement int    `json:"best_placement"`
	Participated  bool   `json:"participated"`
	Points        int    `json:"points"`
}

// TeamTotal holds a team's cumulative tournament score.
type TeamTotal struct {
	Team                string `json:"team"`
	Kills               int    `json:"kills"`
	Points              int    `json:"points"`
	MatchesParticipated int    `json:"matches_participated"`
}

// PlayerTotal holds a player's cumulative tournament stats.
// BestPlacement 0 means the player never had a placement.
type PlayerTotal struct {
	Player        string  `json:"player"`
	Team          string  `json:"team"`
	Kills         int     `json:"kills"`
	Damage        float64 `json:"damage"`
	Assists       int     `json:"assists"`
	SurvivalTime  float64 `json:"survival_time"`
	HeadshotKills int     `json:"headshot_kills"`
	MatchesPlayed int     `json:"matches_played"`
	BestPlacement int     `json:"best_placement"`
}

// ---- Ranked output ----

// TeamStanding is a ranked team row handed to the presentation layer.
type TeamStanding struct {
	Rank int `json:"rank"`
	TeamTotal
	Participated bool `json:"participated"`
}

// PlayerStanding is a ranked player row.
type PlayerStanding struct {
	Rank int `json:"rank"`
	PlayerTotal
}

// MatchStanding is a ranked row of the single-match table. Teams that did not
// field anyone appear with zero values.
type MatchStanding struct {
	Rank int `json:"rank"`
	TeamMatchResult
}

// MatchStatus reports what happened to one scheduled match during a run.
type MatchStatus struct {
	Key        MatchKey `json:"key"`
	Map        string   `json:"map,omitempty"`
	Available  bool     `json:"available"`
	Rows       int      `json:"rows"`
	Unresolved int      `json:"unresolved"`
	Note       string   `json:"note,omitempty"`
}
