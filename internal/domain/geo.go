package domain

import "math"

// earthRadiusMeters is the mean Earth radius used for all great-circle math.
const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between two
// points. Symmetric, and exactly 0 for identical points.
func DistanceMeters(a, b Geo) float64 {
	if a == b {
		return 0
	}

	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingDegrees returns the initial bearing from a to b in [0, 360).
func BearingDegrees(a, b Geo) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dLambda := radians(b.Lng - a.Lng)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// DestinationPoint projects a point the given distance along the given
// initial bearing on the great circle.
func DestinationPoint(origin Geo, distanceMeters, bearingDegrees float64) Geo {
	delta := distanceMeters / earthRadiusMeters
	theta := radians(bearingDegrees)
	phi1 := radians(origin.Lat)
	lambda1 := radians(origin.Lng)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Geo{Lat: degrees(phi2), Lng: degrees(lambda2)}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
