// Package scoring holds the competition's single point rule. Every standings
// view goes through Points; nothing else knows the placement table.
package scoring

// placementTable maps 1-indexed placements to points. Placements past the end
// of the table score FloorPoints.
var placementTable = [...]int{15, 12, 10, 8, 6, 4, 2}

const (
	// FloorPoints is awarded for any valid placement of 8th or worse.
	FloorPoints = 1
	// ParticipationBonus is added once per match a team takes part in.
	ParticipationBonus = 1
	// KillPoints is the value of a single kill.
	KillPoints = 1
)

// PlacementPoints returns the placement component for a best placement.
// Placement <= 0 means no valid placement and scores 0.
func PlacementPoints(placement int) int {
	switch {
	case placement <= 0:
		return 0
	case placement <= len(placementTable):
		return placementTable[placement-1]
	default:
		return FloorPoints
	}
}

// Points returns a team's score for one match. A team that did not take part
// scores 0 whatever its kill count says.
func Points(bestPlacement, kills int, participated bool) int {
	if !participated {
		return 0
	}
	if kills < 0 {
		kills = 0
	}
	return PlacementPoints(bestPlacement) + kills*KillPoints + ParticipationBonus
}
