package frames

import "math"

const earthRadiusMetres float64 = 6371000

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Convert a geographic offset from the origin into east/north distances (meters).
// The mapping is the local tangent plane about the origin latitude, so offsetToGeo
// inverts it exactly.
func geoToOffset(latOrigin, lonOrigin, lat, lon float64) (east float64, north float64) {
	east = radians(lon-lonOrigin) * earthRadiusMetres * math.Cos(radians(latOrigin))
	north = radians(lat-latOrigin) * earthRadiusMetres
	return east, north
}

func offsetToGeo(latOrigin, lonOrigin, east, north float64) (lat float64, lon float64) {
	lat = latOrigin + degrees(north/earthRadiusMetres)
	lon = lonOrigin + degrees(east/(earthRadiusMetres*math.Cos(radians(latOrigin))))
	return lat, lon
}

// https://play.golang.org/p/MZVh5bRWqN
func distance(lonFrom float64, latFrom float64, lonTo float64, latTo float64) float64 {
	var deltaLat = radians(latTo - latFrom)
	var deltaLon = radians(lonTo - lonFrom)

	var a = math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(radians(latFrom))*math.Cos(radians(latTo))*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	var c = 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}
