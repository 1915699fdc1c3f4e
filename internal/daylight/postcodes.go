package daylight

// postcodeTable is a small embedded postcode -> location table. It covers
// representative Australian postcodes only; a production deployment would
// load a fuller table from configuration.
var postcodeTable = map[string]Location{
	"2000": {Postcode: "2000", Name: "Sydney", Latitude: -33.8688, Longitude: 151.2093},
	"2010": {Postcode: "2010", Name: "Surry Hills", Latitude: -33.8853, Longitude: 151.2107},
	"2150": {Postcode: "2150", Name: "Parramatta", Latitude: -33.8150, Longitude: 151.0011},
	"2250": {Postcode: "2250", Name: "Gosford", Latitude: -33.4269, Longitude: 151.3428},
	"2300": {Postcode: "2300", Name: "Newcastle", Latitude: -32.9283, Longitude: 151.7817},
	"2500": {Postcode: "2500", Name: "Wollongong", Latitude: -34.4248, Longitude: 150.8931},
	"2650": {Postcode: "2650", Name: "Wagga Wagga", Latitude: -35.1082, Longitude: 147.3598},
	"3000": {Postcode: "3000", Name: "Melbourne", Latitude: -37.8136, Longitude: 144.9631},
	"3220": {Postcode: "3220", Name: "Geelong", Latitude: -38.1499, Longitude: 144.3617},
	"3350": {Postcode: "3350", Name: "Ballarat", Latitude: -37.5622, Longitude: 143.8503},
	"3550": {Postcode: "3550", Name: "Bendigo", Latitude: -36.7570, Longitude: 144.2794},
	"4000": {Postcode: "4000", Name: "Brisbane", Latitude: -27.4698, Longitude: 153.0251},
	"4217": {Postcode: "4217", Name: "Gold Coast", Latitude: -28.0167, Longitude: 153.4000},
	"4350": {Postcode: "4350", Name: "Toowoomba", Latitude: -27.5598, Longitude: 151.9507},
	"4870": {Postcode: "4870", Name: "Cairns", Latitude: -16.9186, Longitude: 145.7781},
	"5000": {Postcode: "5000", Name: "Adelaide", Latitude: -34.9285, Longitude: 138.6007},
	"6000": {Postcode: "6000", Name: "Perth", Latitude: -31.9523, Longitude: 115.8613},
	"7000": {Postcode: "7000", Name: "Hobart", Latitude: -42.8821, Longitude: 147.3272},
	"0800": {Postcode: "0800", Name: "Darwin", Latitude: -12.4634, Longitude: 130.8456},
	"2600": {Postcode: "2600", Name: "Canberra", Latitude: -35.2809, Longitude: 149.1300},
}

// LookupPostcode resolves a postcode to a Location via the embedded table.
func LookupPostcode(postcode string) (Location, bool) {
	loc, ok := postcodeTable[postcode]
	return loc, ok
}
