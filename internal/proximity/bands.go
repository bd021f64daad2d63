package proximity

// Band is a discrete classification of the straight-line distance between
// a ride's two parties.
type Band string

const (
	BandFar         Band = "far"
	BandApproaching Band = "approaching"
	BandNear        Band = "near"
	BandArrived     Band = "arrived"
)

// Band edges in kilometers. AtStopKm doubles as the passenger-at-destination
// threshold.
const (
	arrivedKm     = 0.1
	nearKm        = 1.0
	approachingKm = 3.0

	AtStopKm = 0.1
)

// Classify maps a distance in kilometers onto a proximity band.
func Classify(distanceKm float64) Band {
	switch {
	case distanceKm <= arrivedKm:
		return BandArrived
	case distanceKm <= nearKm:
		return BandNear
	case distanceKm <= approachingKm:
		return BandApproaching
	default:
		return BandFar
	}
}
