package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pable/squad-standings/internal/model"
)

const sampleRoster = `[
  {
    "nome": "Alpha Squad",
    "logo": "img/alpha.png",
    "statusInscricao": "Inscrito ✅",
    "jogadores": ["Ace (C)", {"nome": "Bolt", "KD": 2.5}, "*", "", "Cobra ⏳"],
    "entradasSaidas": [{"entrada": " Cobra ", "saida": "Viper"}]
  },
  {
    "name": "Bravo",
    "tag": "brv",
    "players": [{"name": "Dash"}, "Echo"]
  },
  {
    "nome": "Empty Team",
    "jogadores": ["*"]
  }
]`

func TestDecodeBuildsTeamsInRosterOrder(t *testing.T) {
	idx, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	want := []model.Team{
		{
			Name:    "Alpha Squad",
			Tag:     "alphasquad",
			Logo:    "img/alpha.png",
			Captain: "Ace",
			Status:  "Inscrito ✅",
			Players: []model.Player{
				{Name: "Ace", Team: "Alpha Squad", Captain: true},
				{Name: "Bolt", Team: "Alpha Squad", KD: 2.5},
				{Name: "Cobra", Team: "Alpha Squad", Pending: true},
			},
			Changes: []model.Substitution{{In: "Cobra", Out: "Viper"}},
		},
		{
			Name: "Bravo",
			Tag:  "brv",
			Players: []model.Player{
				{Name: "Dash", Team: "Bravo"},
				{Name: "Echo", Team: "Bravo"},
			},
		},
		{Name: "Empty Team", Tag: "emptyteam", Players: []model.Player{}},
	}
	if diff := cmp.Diff(want, idx.Teams()); diff != "" {
		t.Errorf("teams mismatch (-want +got):\n%s", diff)
	}
}

func TestTeamOf(t *testing.T) {
	idx, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)

	cases := []struct {
		name   string
		player string
		team   string
		ok     bool
	}{
		{"exact", "Bolt", "Alpha Squad", true},
		{"surrounding whitespace", "  Dash ", "Bravo", true},
		{"different case", "ECHO", "Bravo", true},
		{"captain decoration in match file", "Ace (C)", "Alpha Squad", true},
		{"pending marker in match file", "Cobra⏳", "Alpha Squad", true},
		{"unknown", "Zulu", "", false},
		{"placeholder", "*", "", false},
		{"blank", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			team, ok := idx.TeamOf(tc.player)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.team, team)
		})
	}
}

func TestCleanName(t *testing.T) {
	cases := []struct {
		in      string
		name    string
		captain bool
		pending bool
	}{
		{"Ace", "Ace", false, false},
		{" Ace (C) ", "Ace", true, false},
		{"Ace(c)", "Ace", true, false},
		{"(C) Ace", "Ace", true, false},
		{"Ace ⏳", "Ace", false, true},
		{"Ace (C) ⏳", "Ace", true, true},
		{"*", "*", false, false},
	}
	for _, tc := range cases {
		name, captain, pending := CleanName(tc.in)
		require.Equal(t, tc.name, name, tc.in)
		require.Equal(t, tc.captain, captain, tc.in)
		require.Equal(t, tc.pending, pending, tc.in)
	}
}

func TestDecodeRejectsMalformedRoster(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"null":              "null",
		"no teams":          "[]",
		"repeated on team":  `[{"nome": "A", "jogadores": ["p1 (C)", "p1", "p2"]}]`,
		"not json":          "{nope",
		"object not array":  `{"nome": "A"}`,
		"team without name": `[{"jogadores": ["a"]}]`,
		"duplicate team":    `[{"nome": "A"}, {"nome": "a"}]`,
		"shared player":     `[{"nome": "A", "jogadores": ["x"]}, {"nome": "B", "jogadores": ["X (C)"]}]`,
		"shared tag":        `[{"nome": "A", "tag": "t"}, {"nome": "B", "tag": "t"}]`,
		"bad player entry":  `[{"nome": "A", "jogadores": [42]}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrRosterLoad), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRosterLoad))
}

func TestFilter(t *testing.T) {
	idx, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)

	names := func(teams []model.Team) []string {
		var out []string
		for _, tm := range teams {
			out = append(out, tm.Name)
		}
		return out
	}
	require.Equal(t, []string{"Alpha Squad", "Bravo", "Empty Team"}, names(idx.Filter("")))
	require.Equal(t, []string{"Alpha Squad"}, names(idx.Filter("SQUAD")))
	require.Equal(t, []string{"Empty Team"}, names(idx.Filter("team")))
	require.Equal(t, []string{"Bravo"}, names(idx.Filter("echo")))
	require.Empty(t, idx.Filter("nobody"))
}

func TestSaveRoundTrip(t *testing.T) {
	idx, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)
	require.True(t, idx.SetKD("bolt", 3.25))
	require.False(t, idx.SetKD("nobody", 1))

	path := filepath.Join(t.TempDir(), "times.json")
	require.NoError(t, idx.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	reloaded, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(idx.Teams(), reloaded.Teams()); diff != "" {
		t.Errorf("round trip mismatch (-saved +reloaded):\n%s", diff)
	}
	p, ok := reloaded.Resolve("Bolt")
	require.True(t, ok)
	require.Equal(t, 3.25, p.KD)
}

func TestPlayerOrder(t *testing.T) {
	idx, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)

	team, pos, ok := idx.PlayerOrder("echo")
	require.True(t, ok)
	require.Equal(t, 1, team)
	require.Equal(t, 1, pos)
	require.Equal(t, 0, idx.TeamOrder("alpha squad"))
	require.Equal(t, -1, idx.TeamOrder("nope"))
}
