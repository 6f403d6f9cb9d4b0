package standings

import "github.com/pable/squad-standings/internal/model"

// Highlights are the headline cards: the leading player for kills, assists
// and damage. A card is nil when nobody has a positive value for it.
type Highlights struct {
	TopKills   *model.PlayerStanding `json:"top_kills,omitempty"`
	TopAssists *model.PlayerStanding `json:"top_assists,omitempty"`
	TopDamage  *model.PlayerStanding `json:"top_damage,omitempty"`
}

// Empty reports whether no card could be filled.
func (h Highlights) Empty() bool {
	return h.TopKills == nil && h.TopAssists == nil && h.TopDamage == nil
}

// ComputeHighlights picks each card's leader from a ranked leaderboard. Ties
// go to whoever ranks higher.
func ComputeHighlights(players []model.PlayerStanding) Highlights {
	var h Highlights
	for i := range players {
		p := &players[i]
		if p.Kills == 0 && p.Assists == 0 && p.Damage == 0 {
			continue
		}
		if p.Kills > 0 && (h.TopKills == nil || p.Kills > h.TopKills.Kills) {
			h.TopKills = clone(p)
		}
		if p.Assists > 0 && (h.TopAssists == nil || p.Assists > h.TopAssists.Assists) {
			h.TopAssists = clone(p)
		}
		if p.Damage > 0 && (h.TopDamage == nil || p.Damage > h.TopDamage.Damage) {
			h.TopDamage = clone(p)
		}
	}
	return h
}

func clone(p *model.PlayerStanding) *model.PlayerStanding {
	c := *p
	return &c
}
