package service

// Grade tiers derived from accumulated points. Thresholds are inclusive
// lower bounds; a profile's grade is recomputed every time its points change.
const (
	GradeSeed   = "seed"
	GradeSprout = "sprout"
	GradeTree   = "tree"
	GradeForest = "forest"

	sproutThreshold = 2000
	treeThreshold   = 5000
	forestThreshold = 10000
)

// Point awards for reputation events.
const (
	AttendancePoints = 50
	AdoptionPoints   = 100
)

// GradeForPoints maps a point total to its grade tier.
func GradeForPoints(points int) string {
	switch {
	case points >= forestThreshold:
		return GradeForest
	case points >= treeThreshold:
		return GradeTree
	case points >= sproutThreshold:
		return GradeSprout
	default:
		return GradeSeed
	}
}
