package ephem

import (
	"math"
	"testing"
)

// 2020-06-21, the June solstice.
const solsticeMJD = 59021.0

func TestSunAltitudeOverTheDay(t *testing.T) {
	noon := Sun(solsticeMJD+19.9/24, OVRO)
	if math.Abs(noon.Alt-76.2) > 0.5 {
		t.Fatalf("noon altitude=%v want≈76.2", noon.Alt)
	}

	if noon.Az < 170 || noon.Az > 190 {
		t.Fatalf("noon azimuth=%v want≈180", noon.Az)
	}

	midnight := Sun(solsticeMJD+8.0/24, OVRO)
	if midnight.Alt > -25 {
		t.Fatalf("midnight altitude=%v want<-25", midnight.Alt)
	}

	morning := Sun(solsticeMJD+15.0/24, OVRO)
	if morning.Az < 70 || morning.Az > 90 || morning.Alt < 20 || morning.Alt > 33 {
		t.Fatalf("morning position=%+v want east at ≈26°", morning)
	}
}

func TestMoonCoversSunDuringEclipse(t *testing.T) {
	// Annular eclipse of 2020-06-21, 06:41 UTC.
	mjd := solsticeMJD + (6+41.0/60)/24
	sun := Sun(mjd, OVRO)
	moon := Moon(mjd, OVRO)

	lat, _ := MoveToFrame(sun, moon)
	if sep := 90 - lat; sep > 1.5 {
		t.Fatalf("sun-moon separation=%v° want<1.5°", sep)
	}

	if moon.Alt < -90 || moon.Alt > 90 || moon.Az < 0 || moon.Az >= 360 {
		t.Fatalf("moon position out of range: %+v", moon)
	}
}

func TestMoveToFrame(t *testing.T) {
	pole := Horizontal{Alt: 40, Az: 120}

	lat, _ := MoveToFrame(pole, pole)
	if math.Abs(lat-90) > 1e-9 {
		t.Fatalf("pole latitude=%v want=90", lat)
	}

	lat, _ = MoveToFrame(pole, Horizontal{Alt: 70, Az: 120})
	if math.Abs(90-lat-30) > 1e-9 {
		t.Fatalf("distance=%v want=30", 90-lat)
	}

	lat, _ = MoveToFrame(Horizontal{Alt: 90, Az: 0}, Horizontal{Alt: 10, Az: 250})
	if math.Abs(lat-10) > 1e-9 {
		t.Fatalf("zenith frame latitude=%v want=10", lat)
	}
}

func TestContamination(t *testing.T) {
	tests := []struct {
		dist, angle    float64
		central, outer float64
	}{
		{10, 0, 2, 0},
		{35, 0, 1, 0},
		{50, 0, 0, 0},
		{60, 80, 0, 1},
		{65, 85, 0, 2},
		{65, -3, 0, 2},
		{65, 45, 0, 0},
		{80, 5, 0, 0},
	}

	for _, tt := range tests {
		c, o := Contamination(tt.dist, tt.angle)
		if c != tt.central || o != tt.outer {
			t.Fatalf("Contamination(%v, %v)=(%v, %v) want (%v, %v)", tt.dist, tt.angle, c, o, tt.central, tt.outer)
		}
	}
}

func TestRelative(t *testing.T) {
	o := Relative(Horizontal{Alt: 50, Az: 10}, Horizontal{Alt: 30, Az: 10})
	if math.Abs(o.Dist-20) > 1e-9 || o.Central != 2 {
		t.Fatalf("offset=%+v", o)
	}
}

func TestSiderealAndNight(t *testing.T) {
	if Sidereal(0) != 0 {
		t.Fatalf("Sidereal(0)=%v", Sidereal(0))
	}

	if got := Sidereal(1); math.Abs(got-360*0.002737811) > 1e-6 {
		t.Fatalf("Sidereal(1)=%v", got)
	}

	if got := Night(solsticeMJD + 9.0/24); got != 0 {
		t.Fatalf("Night at 02:00 local=%v want=0", got)
	}

	if got := Night(solsticeMJD + 21.0/24); math.Abs(got-12) > 1e-9 {
		t.Fatalf("Night at 14:00 local=%v want=12", got)
	}
}
