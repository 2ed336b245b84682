// Package ephem provides the sun and moon positions and the sidelobe
// contamination flags used by the scan statistics.
//
// Positions come from the low-precision theories in Meeus' Astronomical
// Algorithms (solar, moonposition, nutation and sidereal packages), which
// are accurate to well under the degree-scale sidelobe structure they are
// compared with.
package ephem

import (
	"math"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

const (
	mjdToJD = 2400000.5
	// deltaT is TT-UT1 in days, about 69 s for the survey years.
	deltaT = 69.0 / 86400
	// earthRadiusKm is the equatorial radius used for the lunar parallax.
	earthRadiusKm = 6378.14
	// siderealRate is sidereal days per solar day.
	siderealRate = 1.002737811
)

// Site is an observatory location in degrees, longitude positive east.
type Site struct {
	Lon float64
	Lat float64
}

// OVRO is the Owens Valley Radio Observatory.
var OVRO = Site{Lon: -118.283, Lat: 37.2313}

// Horizontal is a position in degrees. Azimuth runs from north through east.
type Horizontal struct {
	Alt float64
	Az  float64
}

// Sun returns the apparent topocentric position of the sun at mjd (UTC).
func Sun(mjd float64, site Site) Horizontal {
	jd := mjd + mjdToJD
	ra, dec := solar.ApparentEquatorial(jd + deltaT)

	return horizontal(ra.Rad(), dec.Rad(), jd, site)
}

// Moon returns the apparent topocentric position of the moon at mjd (UTC),
// corrected for lunar parallax.
func Moon(mjd float64, site Site) Horizontal {
	jd := mjd + mjdToJD
	jde := jd + deltaT

	lon, lat, dist := moonposition.Position(jde)
	dpsi, deps := nutation.Nutation(jde)
	eps := nutation.MeanObliquity(jde) + deps
	ra, dec := coord.EclToEq(lon+dpsi, lat, math.Sin(eps.Rad()), math.Cos(eps.Rad()))

	h := horizontal(ra.Rad(), dec.Rad(), jd, site)
	alt := h.Alt * math.Pi / 180
	h.Alt -= math.Asin(earthRadiusKm/dist*math.Cos(alt)) * 180 / math.Pi

	return h
}

// horizontal converts apparent equatorial coordinates in radians to
// horizontal coordinates at the site.
func horizontal(ra, dec, jd float64, site Site) Horizontal {
	gst := sidereal.Apparent(jd).Rad()
	lat := unit.AngleFromDeg(site.Lat).Rad()
	ha := gst + unit.AngleFromDeg(site.Lon).Rad() - ra

	sinAlt := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha)
	alt := math.Asin(math.Max(-1, math.Min(1, sinAlt)))
	az := math.Atan2(-math.Cos(dec)*math.Sin(ha), math.Sin(dec)*math.Cos(lat)-math.Cos(dec)*math.Sin(lat)*math.Cos(ha))

	return Horizontal{Alt: alt * 180 / math.Pi, Az: mod(az*180/math.Pi, 360)}
}

// MoveToFrame expresses body in the spherical frame whose pole points at
// pole. It returns the latitude and longitude of body in that frame, in
// degrees; 90 minus the latitude is the angular distance from the pole.
func MoveToFrame(pole, body Horizontal) (lat, lon float64) {
	rad := math.Pi / 180
	bl, bo := body.Alt*rad, body.Az*rad
	x := math.Cos(bl) * math.Cos(bo)
	y := math.Cos(bl) * math.Sin(bo)
	z := math.Sin(bl)

	pl, po := pole.Alt*rad, pole.Az*rad

	// Rotate about z onto the pole's meridian.
	x1 := math.Cos(po)*x + math.Sin(po)*y
	y1 := -math.Sin(po)*x + math.Cos(po)*y
	z1 := z

	// Tilt the pole onto z.
	tilt := math.Pi/2 - pl
	x2 := math.Cos(tilt)*x1 - math.Sin(tilt)*z1
	z2 := math.Sin(tilt)*x1 + math.Cos(tilt)*z1
	y2 := y1

	lat = math.Atan2(z2, math.Hypot(x2, y2)) / rad
	lon = math.Atan2(y2, x2) / rad

	return lat, lon
}

// Contamination returns the central and outer sidelobe flags for a body at
// angular distance dist from the boresight and position angle angle, both
// in degrees. The central flag is 1 inside 40° and 2 inside 30°. The outer
// flag counts the hits on the four arms of the support-leg sidelobes and
// is at most 2.
func Contamination(dist, angle float64) (central, outer float64) {
	if dist < 40 {
		central++
	}
	if dist < 30 {
		central++
	}

	a := mod(angle, 90)
	if dist > 58 && dist < 75 {
		if a > 75 {
			outer++
		}
		if a < 15 {
			outer++
		}
	}
	if dist > 63 && dist < 70 {
		if a > 82 {
			outer++
		}
		if a < 8 {
			outer++
		}
	}

	return central, outer
}

// Offset is the position of a body relative to a boresight.
type Offset struct {
	Dist    float64
	Angle   float64
	Central float64
	Outer   float64
}

// Relative returns the offset of body from the boresight pointing.
func Relative(boresight, body Horizontal) Offset {
	lat, lon := MoveToFrame(boresight, body)
	o := Offset{Dist: 90 - lat, Angle: lon}
	o.Central, o.Outer = Contamination(o.Dist, o.Angle)

	return o
}

// Sidereal returns the sidereal angle in degrees, up to a constant phase.
func Sidereal(mjd float64) float64 {
	return 360 * mod(siderealRate*mjd, 1)
}

// Night returns the distance in hours from 02:00 local time (UTC-7).
func Night(mjd float64) float64 {
	hours := mod(mjd*24-7, 24)
	return math.Min(math.Abs(2-hours), math.Abs(26-hours))
}

// mod returns x modulo m in [0, m).
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}

	return r
}
