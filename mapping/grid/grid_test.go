package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
)

func co7() Field {
	return Field{Name: "co7", CenterRA: 170, CenterDec: 52.5, RadiusDeg: 2, PixelArcmin: 8}
}

func TestNewFieldPixelization(t *testing.T) {
	g, err := New(co7())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if len(g.RAEdges) != 16 || g.NX() != 15 || g.NY() != 15 {
		t.Fatalf("unexpected grid size: %d edges", len(g.RAEdges))
	}

	if !numeric.NearlyEqual(g.PixelDeg(), 4.0/15, 1e-12) {
		t.Fatalf("pixel = %v deg", g.PixelDeg())
	}

	wantRA0 := -2/math.Cos(52.5*math.Pi/180) + 170
	if !numeric.NearlyEqual(g.RAEdges[0], wantRA0, 1e-12) {
		t.Fatalf("RAEdges[0] = %v, want %v", g.RAEdges[0], wantRA0)
	}

	if g.DecEdges[15] != 54.5 {
		t.Fatalf("DecEdges[last] = %v, want 54.5", g.DecEdges[15])
	}
}

func TestNewRejectsDegenerateField(t *testing.T) {
	if _, err := New(Field{RadiusDeg: 0, PixelArcmin: 8}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}

	if _, err := New(Field{RadiusDeg: 0.05, PixelArcmin: 8}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for sub-pixel radius, got %v", err)
	}
}

func TestFeedRangeClampsToGrid(t *testing.T) {
	g, err := New(Field{RadiusDeg: 2, PixelArcmin: 8})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	// Pointing beyond both ends of the grid.
	r, err := g.FeedRange([]float64{-10, 10}, []float64{-0.1, 0.1})
	if err != nil {
		t.Fatalf("FeedRange error: %v", err)
	}

	if r.X0 != 0 || r.X1 != g.NX() {
		t.Fatalf("ra range [%d,%d), want [0,%d)", r.X0, r.X1, g.NX())
	}

	if len(r.RAEdges) != r.NX()+1 || len(r.DecEdges) != r.NY()+1 {
		t.Fatalf("edges do not match range: %d/%d", len(r.RAEdges), len(r.DecEdges))
	}

	// dec in [-0.1, 0.1] spans the centre pixel only.
	if r.NY() != 1 || r.DecEdges[0] > -0.1 || r.DecEdges[1] < 0.1 {
		t.Fatalf("dec range %+v", r)
	}
}

func TestFeedRangeNoPointing(t *testing.T) {
	g, _ := New(co7())
	nan := math.NaN()
	if _, err := g.FeedRange([]float64{nan}, []float64{nan}); !errors.Is(err, ErrNoPointing) {
		t.Fatalf("expected ErrNoPointing, got %v", err)
	}
}

func TestUnionCoversRanges(t *testing.T) {
	g, _ := New(co7())
	a := Range{X0: 2, X1: 5, Y0: 3, Y1: 4}
	b := Range{X0: 4, X1: 9, Y0: 1, Y1: 2}

	u, ok := g.Union(a, b)
	if !ok || u.X0 != 2 || u.X1 != 9 || u.Y0 != 1 || u.Y1 != 4 {
		t.Fatalf("union = %+v", u)
	}

	if len(u.RAEdges) != 8 || len(u.DecEdges) != 4 {
		t.Fatalf("union edges %d/%d", len(u.RAEdges), len(u.DecEdges))
	}
}

func TestLocalGridCentredOnPointing(t *testing.T) {
	ra := []float64{169, 171, math.NaN()}
	dec := []float64{52, 53, 52.5}

	raEdges, decEdges, err := Local(ra, dec, LocalPixels, LocalPixelDeg)
	if err != nil {
		t.Fatalf("Local error: %v", err)
	}

	if len(raEdges) != 17 || len(decEdges) != 17 {
		t.Fatalf("edge count %d/%d", len(raEdges), len(decEdges))
	}

	if !numeric.NearlyEqual(raEdges[8], 170, 1e-12) || !numeric.NearlyEqual(decEdges[8], 52.5, 1e-12) {
		t.Fatalf("centre (%v, %v)", raEdges[8], decEdges[8])
	}

	if !numeric.NearlyEqual(decEdges[1]-decEdges[0], LocalPixelDeg, 1e-9) {
		t.Fatalf("dec pixel %v", decEdges[1]-decEdges[0])
	}
}

func TestRecenterKeepsOffsets(t *testing.T) {
	g, _ := New(co7())
	r := g.Recenter(10, 0)

	if r.Field.CenterRA != 10 || r.DecEdges[0] != -2 || r.RAEdges[len(r.RAEdges)-1] != 12 {
		t.Fatalf("recentered grid %v %v", r.RAEdges, r.DecEdges)
	}

	if g.Field.CenterRA != 170 {
		t.Fatalf("original grid mutated")
	}
}

func TestFeedRangeOutsideField(t *testing.T) {
	g, _ := New(Field{RadiusDeg: 2, PixelArcmin: 8})

	for _, ra := range [][]float64{{5, 6}, {-9, -3}} {
		if _, err := g.FeedRange(ra, []float64{0, 0.5}); !errors.Is(err, ErrOutsideField) {
			t.Fatalf("ra %v: expected ErrOutsideField, got %v", ra, err)
		}
	}

	// Touching the last edge still overlaps.
	r, err := g.FeedRange([]float64{2, 3}, []float64{0, 0.5})
	if err != nil {
		t.Fatalf("FeedRange error: %v", err)
	}

	if r.X1 != g.NX() || r.NX() != 1 {
		t.Fatalf("ra range [%d,%d) want last pixel", r.X0, r.X1)
	}
}
