package domain

const (
	MinSteps = 1
	MaxSteps = 98800
)

// ValidSteps reports whether a step count is inside the range the remote
// service accepts.
func ValidSteps(steps int) bool {
	return steps >= MinSteps && steps <= MaxSteps
}

// DistanceFor derives the distance (meters) the remote service expects to
// accompany a step total: floor(steps * 0.6), computed in integer math so the
// floor is exact.
func DistanceFor(steps int) int {
	return steps * 3 / 5
}

// CaloriesFor derives the calorie figure paired with a step total:
// floor(steps * 0.04).
func CaloriesFor(steps int) int {
	return steps / 25
}
