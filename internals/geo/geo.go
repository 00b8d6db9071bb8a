// Package geo holds the pure great-circle math behind route lengths and
// arrival estimates. Everything here is deterministic and side-effect free.
package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/thebowwman/ordertrack/internals/domain"
)

const earthRadiusMeters = 6371000.0

// DefaultArrivedThresholdMeters is the remaining distance under which a
// delivery counts as arrived.
const DefaultArrivedThresholdMeters = 100.0

// ETA is either a countdown or the arrived marker.
type ETA struct {
	Arrived  bool          `json:"arrived"`
	Duration time.Duration `json:"-"`
}

func (e ETA) Seconds() int64 { return int64(e.Duration / time.Second) }

// HaversineDistance returns the great-circle distance between a and b in
// meters.
func HaversineDistance(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// RouteLength sums the leg distances over consecutive waypoints. Routes
// with fewer than two waypoints have length zero.
func RouteLength(r domain.Route) float64 {
	var total float64
	for i := 1; i < len(r); i++ {
		total += HaversineDistance(r[i-1].Coordinate, r[i].Coordinate)
	}
	return total
}

// EstimateETA estimates time to cover the whole of r at the given speed.
func EstimateETA(r domain.Route, speedMPS, arrivedThresholdM float64) (ETA, error) {
	return ETAForDistance(RouteLength(r), speedMPS, arrivedThresholdM)
}

// ETAForDistance converts a remaining distance into an ETA: the arrived
// marker below the threshold, ceil(distance/speed) seconds otherwise.
func ETAForDistance(distanceM, speedMPS, arrivedThresholdM float64) (ETA, error) {
	if speedMPS <= 0 || math.IsNaN(speedMPS) {
		return ETA{}, fmt.Errorf("%w: speed must be positive, got %v", domain.ErrInvalidInput, speedMPS)
	}
	if distanceM < arrivedThresholdM {
		return ETA{Arrived: true}, nil
	}
	secs := math.Ceil(distanceM / speedMPS)
	return ETA{Duration: time.Duration(secs) * time.Second}, nil
}

// NearestWaypointIndex returns the index of the route waypoint closest to
// point, ties going to the earliest waypoint. Returns -1 for an empty
// route.
func NearestWaypointIndex(r domain.Route, point domain.Coordinate) int {
	best := -1
	bestDist := math.Inf(1)
	for i, w := range r {
		if d := HaversineDistance(w.Coordinate, point); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
