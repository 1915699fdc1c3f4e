// Package daylight computes sunrise/sunset for a local date and an opaque
// postcode location identifier. It is a pure function of its inputs (no
// I/O): postcodes resolve through an embedded table and sun times come
// from a solar-position approximation.
package daylight

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrLocationUnknown is returned when a postcode has no entry in the
// embedded table.
var ErrLocationUnknown = errors.New("daylight: location unknown")

// Info is one day's daylight window.
type Info struct {
	Date             time.Time // local midnight of the date computed for
	Sunrise          time.Time
	Sunset           time.Time
	DayLengthMinutes float64
}

// Location is a resolved latitude/longitude pair.
type Location struct {
	Postcode  string
	Name      string
	Latitude  float64
	Longitude float64
}

// Calculator computes DaylightInfo for a configured location and timezone.
type Calculator struct {
	loc Location
	tz  *time.Location
}

// NewCalculator resolves postcode via the embedded table and binds the
// calculator to tz (a timezone name such as "Australia/Sydney").
func NewCalculator(postcode, timezone string) (*Calculator, error) {
	loc, ok := LookupPostcode(postcode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocationUnknown, postcode)
	}
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("daylight: invalid timezone %q: %w", timezone, err)
	}
	return &Calculator{loc: loc, tz: tz}, nil
}

// Location returns the resolved location.
func (c *Calculator) Location() Location { return c.loc }

// Compute returns sunrise/sunset for the local calendar date of `date`
// (the instant's date component, interpreted in the calculator's
// timezone). It is deterministic: identical (date, location, timezone)
// always produce identical output.
func (c *Calculator) Compute(date time.Time) (Info, error) {
	d := date.In(c.tz)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.tz)

	sunrise, sunset, err := sunriseSunset(midnight, c.loc.Latitude, c.loc.Longitude, c.tz)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Date:             midnight,
		Sunrise:          sunrise,
		Sunset:           sunset,
		DayLengthMinutes: sunset.Sub(sunrise).Minutes(),
	}, nil
}

// sunriseSunset implements the standard solar hour-angle approximation
// (NOAA/Meeus simplified form): accurate to within a few minutes, which is
// adequate at the 20-minute cycle granularity this scheduler works at.
func sunriseSunset(midnight time.Time, latDeg, lonDeg float64, tz *time.Location) (time.Time, time.Time, error) {
	dayOfYear := float64(midnight.YearDay())

	// Fractional year (radians).
	gamma := 2 * math.Pi / 365 * (dayOfYear - 1)

	// Equation of time (minutes) and solar declination (radians).
	eqTime := 229.18 * (0.000075 + 0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
	decl := 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	latRad := latDeg * math.Pi / 180

	cosH := (math.Cos(90.833*math.Pi/180) / (math.Cos(latRad) * math.Cos(decl))) - math.Tan(latRad)*math.Tan(decl)
	if cosH > 1 {
		// Sun never rises (polar night): degenerate to midnight both ends.
		return midnight, midnight, nil
	}
	if cosH < -1 {
		// Sun never sets (midnight sun): degenerate to a full day.
		end := midnight.Add(24 * time.Hour)
		return midnight, end, nil
	}
	haDeg := math.Acos(cosH) * 180 / math.Pi

	_, offsetSeconds := midnight.Zone()
	utcOffsetMinutes := float64(offsetSeconds) / 60

	sunriseUTCMinutes := 720 - 4*(lonDeg+haDeg) - eqTime
	sunsetUTCMinutes := 720 - 4*(lonDeg-haDeg) - eqTime

	sunriseLocal := sunriseUTCMinutes + utcOffsetMinutes
	sunsetLocal := sunsetUTCMinutes + utcOffsetMinutes

	sunrise := midnight.Add(time.Duration(sunriseLocal * float64(time.Minute)))
	sunset := midnight.Add(time.Duration(sunsetLocal * float64(time.Minute)))
	return sunrise, sunset, nil
}
