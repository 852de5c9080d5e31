package utils

import "math"

const earthRadiusMiles = 3958.8

// HaversineMiles returns the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(a)))
}

// BoundingBox is a lat/lng rectangle that contains every point within radius
// miles of the centre. It is used as a cheap SQL prefilter.
type BoundingBox struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

func BoundingBoxFor(lat, lng, radiusMiles float64) BoundingBox {
	dLat := radiusMiles / 69.0
	cos := math.Cos(toRad(lat))
	dLng := 180.0
	if cos > 1e-6 {
		dLng = math.Min(180, radiusMiles/(69.172*cos))
	}
	return BoundingBox{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: math.Max(-180, lng-dLng),
		MaxLng: math.Min(180, lng+dLng),
	}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
