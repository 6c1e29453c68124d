package ardrone

import "math"

// earthRadiusMeters matches original_source/Source/ARLocation.h's
// haversine radius (6367 km).
const earthRadiusMeters = 6367000.0

// Location is a WGS-84 latitude/longitude pair in degrees, ported from
// ARLocation.h.
type Location struct {
	Latitude, Longitude float64
}

// Distance returns the great-circle distance to other, in meters.
func (l Location) Distance(other Location) float64 {
	lat1, lat2 := degToRad(l.Latitude), degToRad(other.Latitude)
	dLat := degToRad(other.Latitude - l.Latitude)
	dLon := degToRad(other.Longitude - l.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Heading returns the initial bearing from l to other, in degrees,
// normalized to [0, 360).
func (l Location) Heading(other Location) float64 {
	lat1, lat2 := degToRad(l.Latitude), degToRad(other.Latitude)
	dLon := degToRad(other.Longitude - l.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := radToDeg(math.Atan2(y, x))
	return math.Mod(bearing+360, 360)
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

