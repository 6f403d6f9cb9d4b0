package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/standings"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintStandings prints the overall team table. Teams that have not played
// any match are marked with "-" in the matches column.
func PrintStandings(w io.Writer, rows []model.TeamStanding) {
	table := newTable(w)
	table.Header("#", "TEAM", "KILLS", "POINTS", "MATCHES")
	for _, r := range rows {
		matches := "-"
		if r.Participated {
			matches = strconv.Itoa(r.MatchesParticipated)
		}
		table.Append(
			strconv.Itoa(r.Rank),
			r.Team,
			strconv.Itoa(r.Kills),
			strconv.Itoa(r.Points),
			matches,
		)
	}
	table.Render()
}

// MatchTitle formats the heading of a single-match table, e.g.
// "DIA 1 | Erangel | Jogo 1/3". The map part is dropped when unknown.
func MatchTitle(m model.Match, of int) string {
	parts := []string{roundLabel(m.Key.Round)}
	if m.Map != "" {
		parts = append(parts, m.Map)
	}
	parts = append(parts, fmt.Sprintf("Jogo %d/%d", m.Key.Index, of))
	return strings.Join(parts, " | ")
}

// roundLabel splits a trailing number off the label: "DIA1" → "DIA 1".
func roundLabel(label string) string {
	i := len(label)
	for i > 0 && unicode.IsDigit(rune(label[i-1])) {
		i--
	}
	if i == 0 || i == len(label) || label[i-1] == ' ' {
		return label
	}
	return label[:i] + " " + label[i:]
}

// PrintMatch prints the table of one match under its title.
func PrintMatch(w io.Writer, m model.Match, of int, status model.MatchStatus, rows []model.MatchStanding) {
	fmt.Fprintf(w, "\n%s\n", MatchTitle(m, of))
	if !status.Available {
		note := status.Note
		if note == "" {
			note = "not yet played"
		}
		fmt.Fprintf(w, "(%s)\n", note)
	}
	fmt.Fprintln(w)

	table := newTable(w)
	table.Header("#", "TEAM", "PLACE", "KILLS", "POINTS")
	for _, r := range rows {
		table.Append(
			strconv.Itoa(r.Rank),
			r.Team,
			place(r.BestPlacement),
			strconv.Itoa(r.Kills),
			strconv.Itoa(r.Points),
		)
	}
	table.Render()
}

// PrintPlayers prints the player leaderboard.
func PrintPlayers(w io.Writer, rows []model.PlayerStanding) {
	table := newTable(w)
	table.Header("#", "PLAYER", "TEAM", "K", "A", "DAMAGE", "HS", "SURVIVED", "BEST", "MATCHES")
	for _, r := range rows {
		table.Append(
			strconv.Itoa(r.Rank),
			r.Player,
			r.Team,
			strconv.Itoa(r.Kills),
			strconv.Itoa(r.Assists),
			fmt.Sprintf("%.1f", r.Damage),
			strconv.Itoa(r.HeadshotKills),
			duration(r.SurvivalTime),
			place(r.BestPlacement),
			strconv.Itoa(r.MatchesPlayed),
		)
	}
	table.Render()
}

// PrintHighlights prints the top cards, or a single line when no player has
// recorded any stat yet.
func PrintHighlights(w io.Writer, h standings.Highlights) {
	if h.Empty() {
		fmt.Fprintln(w, "No highlights yet.")
		return
	}
	table := newTable(w)
	table.Header("CARD", "PLAYER", "TEAM", "VALUE")
	if p := h.TopKills; p != nil {
		table.Append("Top kills", p.Player, p.Team, strconv.Itoa(p.Kills))
	}
	if p := h.TopAssists; p != nil {
		table.Append("Top assists", p.Player, p.Team, strconv.Itoa(p.Assists))
	}
	if p := h.TopDamage; p != nil {
		table.Append("Top damage", p.Player, p.Team, fmt.Sprintf("%.1f", p.Damage))
	}
	table.Render()
}

// PrintTeams lists teams with their players. Captains are marked with "(C)"
// and pending registrations with "⏳".
func PrintTeams(w io.Writer, teams []model.Team) {
	if len(teams) == 0 {
		fmt.Fprintln(w, "No teams found.")
		return
	}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	table.Header("TEAM", "TAG", "PLAYER", "K/D")
	for _, t := range teams {
		if len(t.Players) == 0 {
			table.Append(t.Name, t.Tag, "-", "-")
			continue
		}
		for i, p := range t.Players {
			name, tag := t.Name, t.Tag
			if i > 0 {
				name, tag = "", ""
			}
			table.Append(name, tag, decorate(p), kd(p.KD))
		}
	}
	table.Render()
}

// PrintMatchStatus prints one line per scheduled match.
func PrintMatchStatus(w io.Writer, matches []model.MatchStatus) {
	table := newTable(w)
	table.Header("MATCH", "MAP", "ROWS", "UNRESOLVED", "STATUS")
	for _, m := range matches {
		status := "ok"
		if !m.Available {
			status = m.Note
		}
		mapName := m.Map
		if mapName == "" {
			mapName = "-"
		}
		table.Append(m.Key.String(), mapName, strconv.Itoa(m.Rows), strconv.Itoa(m.Unresolved), status)
	}
	table.Render()
}

func decorate(p model.Player) string {
	name := p.Name
	if p.Captain {
		name += " (C)"
	}
	if p.Pending {
		name += " ⏳"
	}
	return name
}

func place(p int) string {
	if p <= 0 {
		return "-"
	}
	return "#" + strconv.Itoa(p)
}

func kd(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// duration renders seconds as m:ss.
func duration(seconds float64) string {
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
