// Package roster builds the player → team lookup every aggregation stage
// resolves match rows against.
//
// The roster file is a JSON array of teams. Team and player keys are accepted
// in both the Portuguese form the published site uses ("nome", "jogadores")
// and the English form ("name", "players"). Player entries are either plain
// strings or objects carrying a name and optional K/D.
package roster

import (
	"os"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/pable/squad-standings/internal/model"
)

// ErrRosterLoad marks a missing or malformed roster. No standings can be
// produced without one.
var ErrRosterLoad = errors.New("roster load failed")

const (
	captainMarker = "(C)"
	pendingMarker = "⏳"
	placeholder   = "*"
)

var fold = cases.Fold()

var validate = validator.New()

type rawTeam struct {
	Nome            string         `json:"nome" validate:"required_without=Name"`
	Name            string         `json:"name" validate:"required_without=Nome"`
	Tag             string         `json:"tag"`
	Logo            string         `json:"logo"`
	Capitao         string         `json:"capitao"`
	Captain         string         `json:"captain"`
	StatusInscricao string         `json:"statusInscricao"`
	Jogadores       []rawPlayer    `json:"jogadores"`
	Players         []rawPlayer    `json:"players"`
	EntradasSaidas  []substitution `json:"entradasSaidas"`
}

type substitution struct {
	Entrada string `json:"entrada"`
	Saida   string `json:"saida"`
}

type rawPlayer struct {
	Name string
	KD   float64
}

// UnmarshalJSON accepts "nick" or {"nome": "nick", "KD": 1.2}.
func (p *rawPlayer) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}
	var obj struct {
		Nome string  `json:"nome"`
		Name string  `json:"name"`
		KD   float64 `json:"KD"`
	}
	if err := sonic.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "player entry must be a string or an object")
	}
	p.Name = firstNonEmpty(obj.Nome, obj.Name)
	p.KD = obj.KD
	return nil
}

// Index resolves player names to teams. It is read-only after construction and
// safe for concurrent use.
type Index struct {
	teams    []model.Team
	byTeam   map[string]int
	byPlayer map[string]playerRef
}

type playerRef struct {
	team   int
	player int
}

// Load reads and decodes the roster file at path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read roster %s", path), ErrRosterLoad)
	}
	idx, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "roster %s", path)
	}
	return idx, nil
}

// Decode builds an Index from roster JSON.
func Decode(data []byte) (*Index, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.Mark(errors.New("roster is empty"), ErrRosterLoad)
	}
	var raw []rawTeam
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode roster"), ErrRosterLoad)
	}
	if len(raw) == 0 {
		return nil, errors.Mark(errors.New("roster has no teams"), ErrRosterLoad)
	}
	teams := make([]model.Team, 0, len(raw))
	for i, rt := range raw {
		if err := validate.Struct(rt); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "team #%d", i+1), ErrRosterLoad)
		}
		teams = append(teams, buildTeam(rt))
	}
	return New(teams)
}

// New indexes already-built teams. Team names and tags must be unique and a
// player may appear on only one team.
func New(teams []model.Team) (*Index, error) {
	idx := &Index{
		teams:    make([]model.Team, 0, len(teams)),
		byTeam:   make(map[string]int, len(teams)),
		byPlayer: make(map[string]playerRef),
	}
	tags := make(map[string]string, len(teams))
	for _, t := range teams {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, errors.Mark(errors.New("team without a name"), ErrRosterLoad)
		}
		if t.Tag == "" {
			t.Tag = DeriveTag(t.Name)
		}
		key := fold.String(t.Name)
		if _, dup := idx.byTeam[key]; dup {
			return nil, errors.Mark(errors.Newf("duplicate team %q", t.Name), ErrRosterLoad)
		}
		if other, dup := tags[t.Tag]; dup {
			return nil, errors.Mark(errors.Newf("teams %q and %q share tag %q", other, t.Name, t.Tag), ErrRosterLoad)
		}
		tags[t.Tag] = t.Name

		ti := len(idx.teams)
		players := make([]model.Player, 0, len(t.Players))
		for _, p := range t.Players {
			p.Team = t.Name
			pk := fold.String(p.Name)
			if prev, dup := idx.byPlayer[pk]; dup {
				if prev.team == ti {
					return nil, errors.Mark(errors.Newf("player %q listed twice on %q", p.Name, t.Name), ErrRosterLoad)
				}
				return nil, errors.Mark(errors.Newf("player %q listed on %q and %q",
					p.Name, idx.teams[prev.team].Name, t.Name), ErrRosterLoad)
			}
			idx.byPlayer[pk] = playerRef{team: ti, player: len(players)}
			players = append(players, p)
		}
		t.Players = players
		idx.byTeam[key] = ti
		idx.teams = append(idx.teams, t)
	}
	return idx, nil
}

func buildTeam(rt rawTeam) model.Team {
	t := model.Team{
		Name:   strings.TrimSpace(firstNonEmpty(rt.Nome, rt.Name)),
		Tag:    strings.TrimSpace(rt.Tag),
		Logo:   rt.Logo,
		Status: strings.TrimSpace(rt.StatusInscricao),
	}
	for _, sub := range rt.EntradasSaidas {
		t.Changes = append(t.Changes, model.Substitution{
			In:  strings.TrimSpace(sub.Entrada),
			Out: strings.TrimSpace(sub.Saida),
		})
	}
	entries := rt.Jogadores
	if len(entries) == 0 {
		entries = rt.Players
	}
	captain, _, _ := CleanName(firstNonEmpty(rt.Capitao, rt.Captain))
	for _, e := range entries {
		name, isCaptain, pending := CleanName(e.Name)
		if !ValidName(name) {
			continue
		}
		if isCaptain && captain == "" {
			captain = name
		}
		t.Players = append(t.Players, model.Player{
			Name:    name,
			Captain: isCaptain || (captain != "" && fold.String(captain) == fold.String(name)),
			Pending: pending,
			KD:      e.KD,
		})
	}
	t.Captain = captain
	return t
}

// CleanName trims a roster or match-file name and strips the captain and
// pending-registration decorations. Lookups and indexing both go through it.
func CleanName(s string) (name string, captain, pending bool) {
	name = strings.TrimSpace(s)
	for {
		switch {
		case strings.HasSuffix(strings.ToUpper(name), captainMarker):
			name = strings.TrimSpace(name[:len(name)-len(captainMarker)])
			captain = true
		case strings.HasPrefix(strings.ToUpper(name), captainMarker):
			name = strings.TrimSpace(name[len(captainMarker):])
			captain = true
		case strings.Contains(name, pendingMarker):
			name = strings.TrimSpace(strings.ReplaceAll(name, pendingMarker, ""))
			pending = true
		default:
			return name, captain, pending
		}
	}
}

// ValidName reports whether a cleaned name is a real player rather than a
// blank or wildcard slot.
func ValidName(name string) bool {
	return name != "" && name != placeholder
}

// DeriveTag lower-cases name and removes all whitespace.
func DeriveTag(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TeamOf returns the team a player name belongs to. Matching is
// case-insensitive after CleanName.
func (idx *Index) TeamOf(player string) (string, bool) {
	p, ok := idx.Resolve(player)
	if !ok {
		return "", false
	}
	return p.Team, true
}

// Resolve returns the roster entry for a player name.
func (idx *Index) Resolve(player string) (model.Player, bool) {
	ref, ok := idx.lookup(player)
	if !ok {
		return model.Player{}, false
	}
	return idx.teams[ref.team].Players[ref.player], true
}

// PlayerOrder returns the player's (team, player) position in roster order.
func (idx *Index) PlayerOrder(player string) (team, pos int, ok bool) {
	ref, ok := idx.lookup(player)
	return ref.team, ref.player, ok
}

func (idx *Index) lookup(player string) (playerRef, bool) {
	name, _, _ := CleanName(player)
	if !ValidName(name) {
		return playerRef{}, false
	}
	ref, ok := idx.byPlayer[fold.String(name)]
	return ref, ok
}

// Team returns a team by name (case-insensitive).
func (idx *Index) Team(name string) (model.Team, bool) {
	i, ok := idx.byTeam[fold.String(strings.TrimSpace(name))]
	if !ok {
		return model.Team{}, false
	}
	return idx.teams[i], true
}

// TeamOrder returns a team's position in the roster, or -1.
func (idx *Index) TeamOrder(name string) int {
	if i, ok := idx.byTeam[fold.String(strings.TrimSpace(name))]; ok {
		return i
	}
	return -1
}

// Teams returns the teams in roster order.
func (idx *Index) Teams() []model.Team {
	out := make([]model.Team, len(idx.teams))
	copy(out, idx.teams)
	return out
}

// Len returns the number of teams.
func (idx *Index) Len() int { return len(idx.teams) }

// Filter returns the teams whose name, or any player's name, contains query
// (case-insensitive). An empty query returns every team.
func (idx *Index) Filter(query string) []model.Team {
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return idx.Teams()
	}
	var out []model.Team
	for _, t := range idx.teams {
		if strings.Contains(fold.String(t.Name), q) {
			out = append(out, t)
			continue
		}
		for _, p := range t.Players {
			if strings.Contains(fold.String(p.Name), q) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SetKD records a player's K/D. It mutates the index and must not run
// concurrently with lookups.
func (idx *Index) SetKD(player string, kd float64) bool {
	ref, ok := idx.lookup(player)
	if !ok {
		return false
	}
	idx.teams[ref.team].Players[ref.player].KD = kd
	return true
}

type savedTeam struct {
	Nome            string         `json:"nome"`
	Tag             string         `json:"tag"`
	Logo            string         `json:"logo,omitempty"`
	Capitao         string         `json:"capitao,omitempty"`
	StatusInscricao string         `json:"statusInscricao,omitempty"`
	Jogadores       []savedPlayer  `json:"jogadores"`
	EntradasSaidas  []substitution `json:"entradasSaidas,omitempty"`
}

type savedPlayer struct {
	Nome string  `json:"nome"`
	KD   float64 `json:"KD,omitempty"`
}

// Encode renders the index back into roster JSON. Captain and pending
// decorations are restored so the output reloads to the same index.
func (idx *Index) Encode() ([]byte, error) {
	out := make([]savedTeam, 0, len(idx.teams))
	for _, t := range idx.teams {
		st := savedTeam{
			Nome:            t.Name,
			Tag:             t.Tag,
			Logo:            t.Logo,
			Capitao:         t.Captain,
			StatusInscricao: t.Status,
			Jogadores:       make([]savedPlayer, 0, len(t.Players)),
		}
		for _, c := range t.Changes {
			st.EntradasSaidas = append(st.EntradasSaidas, substitution{Entrada: c.In, Saida: c.Out})
		}
		for _, p := range t.Players {
			name := p.Name
			if p.Captain {
				name += " " + captainMarker
			}
			if p.Pending {
				name += " " + pendingMarker
			}
			st.Jogadores = append(st.Jogadores, savedPlayer{Nome: name, KD: p.KD})
		}
		out = append(out, st)
	}
	data, err := sonic.ConfigDefault.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode roster")
	}
	return append(data, '\n'), nil
}

// Save writes the roster JSON to path.
func (idx *Index) Save(path string) error {
	data, err := idx.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write roster %s", path)
	}
	return nil
}
