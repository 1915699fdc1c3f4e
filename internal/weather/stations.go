// Package weather implements a periodic poller for outdoor temperature and
// humidity from an external meteorological feed, with a cached last-good
// sample, a staleness budget, and nearest-station resolution.
package weather

import "math"

// Station is an observation station in the embedded table.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}

// stationTable is a representative subset of Australian observation
// stations. A production deployment would load a fuller table from
// configuration.
var stationTable = []Station{
	{ID: "94768", Name: "Sydney Observatory Hill", Latitude: -33.8597, Longitude: 151.2053},
	{ID: "94767", Name: "Sydney Airport", Latitude: -33.9399, Longitude: 151.1753},
	{ID: "94594", Name: "Wollongong", Latitude: -34.4333, Longitude: 150.8833},
	{ID: "95936", Name: "Melbourne", Latitude: -37.8136, Longitude: 144.9631},
	{ID: "95904", Name: "Melbourne Airport", Latitude: -37.6733, Longitude: 144.8433},
	{ID: "40842", Name: "Brisbane", Latitude: -27.4808, Longitude: 153.0389},
	{ID: "23000", Name: "Adelaide (Kent Town)", Latitude: -34.9211, Longitude: 138.6216},
	{ID: "9225", Name: "Perth Airport", Latitude: -31.9275, Longitude: 115.9764},
	{ID: "94029", Name: "Hobart (Ellerslie Road)", Latitude: -42.8372, Longitude: 147.3294},
	{ID: "14015", Name: "Darwin Airport", Latitude: -12.4239, Longitude: 130.8925},
	{ID: "70351", Name: "Canberra Airport", Latitude: -35.3039, Longitude: 149.2011},
}

// StationByID looks up a station by ID.
func StationByID(id string) (Station, bool) {
	for _, s := range stationTable {
		if s.ID == id {
			return s, true
		}
	}
	return Station{}, false
}

// NearestStation finds the station closest to (lat, lon) by great-circle
// (haversine) distance.
func NearestStation(lat, lon float64) (Station, float64, bool) {
	if len(stationTable) == 0 {
		return Station{}, 0, false
	}
	best := stationTable[0]
	bestDist := haversineKM(lat, lon, best.Latitude, best.Longitude)
	for _, s := range stationTable[1:] {
		d := haversineKM(lat, lon, s.Latitude, s.Longitude)
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best, bestDist, true
}

const earthRadiusKM = 6371.0

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
