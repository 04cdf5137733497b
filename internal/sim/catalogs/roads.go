package catalogs

var roadLengthThresholds = [...]int{4, 6, 7, 10, 13, 18, 24}

// MaxTransporters maps a road length category to the number of transporters
// allowed on the segment at once.
var MaxTransporters = [8]int{1, 2, 3, 4, 6, 8, 11, 15}

// RoadLengthCategory buckets a road length in steps into 0..7.
func RoadLengthCategory(length int) int {
	for i, t := range roadLengthThresholds {
		if length < t {
			return i
		}
	}
	return len(roadLengthThresholds)
}
