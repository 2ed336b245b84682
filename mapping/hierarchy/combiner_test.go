package hierarchy

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/testutil"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/spectrum/nullsim"
	"github.com/cwbudde/algo-scanqc/spectrum/pschi2"
)

const (
	testFeeds     = 2
	testSidebands = 2
	testChannels  = 16
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Field{Name: "test", RadiusDeg: 2, PixelArcmin: 8})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}

	return g
}

func testCombiner(t *testing.T) (*Combiner, *grid.Grid) {
	g := testGrid(t)
	engine := pschi2.New(nullsim.New(nullsim.WithSeed(5), nullsim.WithRealizations(10)))

	return New(engine, g, testFeeds, testSidebands, testChannels), g
}

func noiseSideband(seed int64, nx, ny int) *SidebandMap {
	rms := cube.New(nx, ny, testChannels)
	m := cube.NewLike(rms)
	g := testutil.DeterministicGaussian(seed, 1, m.Len())
	for i := range rms.Data {
		rms.Data[i] = 0.2
		m.Data[i] = 0.2 * g[i]
	}

	return &SidebandMap{Map: m, RMS: rms}
}

func feedMaps(g *grid.Grid, x0, y0 int, seed int64, accepted ...bool) FeedMaps {
	r, _ := g.Union(grid.Range{X0: x0, X1: x0 + 10, Y0: y0, Y1: y0 + 10})
	f := FeedMaps{Range: r, Sidebands: make([]*SidebandMap, testSidebands)}
	for b, ok := range accepted {
		if ok {
			f.Sidebands[b] = noiseSideband(seed+int64(b), r.NX(), r.NY())
		}
	}

	return f
}

func TestProcessAllRejectedIsMissingEverywhere(t *testing.T) {
	c, g := testCombiner(t)
	obs := ObsidMaps{Scans: []ScanMaps{
		{Feeds: []FeedMaps{feedMaps(g, 0, 0, 1, false, false), feedMaps(g, 2, 2, 2, false, false)}},
		{Feeds: []FeedMaps{feedMaps(g, 0, 0, 3, false, false), feedMaps(g, 2, 2, 4, false, false)}},
	}}

	res, err := c.Process(obs)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	testutil.RequireNaN(t, "obsid", res.Obsid)
	if res.Map != nil || res.RMS != nil {
		t.Fatalf("obsid map should be nil without accepted feeds")
	}

	for s := range obs.Scans {
		testutil.RequireNaN(t, "scan", res.Scan[s])
		for f := range testFeeds {
			testutil.RequireNaN(t, "scan feed", res.ScanFeed[s][f])
			for b := range testSidebands {
				testutil.RequireNaN(t, "scan sideband", res.ScanSideband[s][f][b])
				testutil.RequireNaN(t, "line", res.ScanLine[s][f][b])
				testutil.RequireNaN(t, "angular", res.ScanAngular[s][f][b])
			}
		}
	}

	for f := range testFeeds {
		testutil.RequireNaN(t, "obsid feed", res.ObsidFeed[f])
		for b := range testSidebands {
			testutil.RequireNaN(t, "obsid sideband", res.ObsidSideband[f][b])
		}
	}
}

func TestProcessEvaluatesEveryAcceptedLevel(t *testing.T) {
	c, g := testCombiner(t)
	obs := ObsidMaps{Scans: []ScanMaps{
		{Feeds: []FeedMaps{feedMaps(g, 1, 2, 10, true, false), feedMaps(g, 3, 1, 20, false, false)}},
		{Feeds: []FeedMaps{feedMaps(g, 2, 2, 30, true, true), feedMaps(g, 3, 1, 40, false, false)}},
	}}

	res, err := c.Process(obs)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	finite := func(name string, v float64) {
		t.Helper()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s = %v, want finite", name, v)
		}
	}

	finite("scan 0 feed 0 sb 0", res.ScanSideband[0][0][0])
	finite("scan 0 line", res.ScanLine[0][0][0])
	finite("scan 0 angular", res.ScanAngular[0][0][0])
	testutil.RequireNaN(t, "scan 0 feed 0 sb 1", res.ScanSideband[0][0][1])
	finite("scan 1 feed 0 sb 1", res.ScanSideband[1][0][1])

	finite("scan 0 feed 0", res.ScanFeed[0][0])
	testutil.RequireNaN(t, "scan 0 feed 1", res.ScanFeed[0][1])

	finite("scan 0", res.Scan[0])
	finite("scan 1", res.Scan[1])
	finite("obsid", res.Obsid)

	finite("obsid feed 0", res.ObsidFeed[0])
	finite("obsid feed 0 sb 0", res.ObsidSideband[0][0])
	finite("obsid feed 0 sb 1", res.ObsidSideband[0][1])
	testutil.RequireNaN(t, "obsid feed 1", res.ObsidFeed[1])
	testutil.RequireNaN(t, "obsid feed 1 sb 0", res.ObsidSideband[1][0])

	if res.Map == nil || res.RMS == nil {
		t.Fatalf("obsid map missing")
	}
	if res.Map.NX != res.Range.NX() || res.Map.NY != res.Range.NY() || res.Map.NZ != testSidebands*testChannels {
		t.Fatalf("obsid map %dx%dx%d does not match range %+v", res.Map.NX, res.Map.NY, res.Map.NZ, res.Range)
	}
	if res.RMS.CountPositive() == 0 {
		t.Fatalf("obsid rms has no coverage")
	}
}

func TestProcessRejectsMalformedLayout(t *testing.T) {
	c, g := testCombiner(t)

	wrongFeeds := ObsidMaps{Scans: []ScanMaps{{Feeds: []FeedMaps{feedMaps(g, 0, 0, 1, true, false)}}}}
	res, err := c.Process(wrongFeeds)
	if !errors.Is(err, ErrLayout) {
		t.Fatalf("expected ErrLayout, got %v", err)
	}
	testutil.RequireNaN(t, "obsid", res.Obsid)

	bad := feedMaps(g, 0, 0, 1, true, false)
	bad.Sidebands[0] = noiseSideband(1, 3, 3)
	wrongShape := ObsidMaps{Scans: []ScanMaps{{Feeds: []FeedMaps{bad, feedMaps(g, 0, 0, 2, false, false)}}}}
	if _, err := c.Process(wrongShape); !errors.Is(err, ErrLayout) {
		t.Fatalf("expected ErrLayout for shape, got %v", err)
	}
}

func TestCropReportsRangeOutsideAccumulator(t *testing.T) {
	acc := NewAccumulator(4, 4, 2)

	m, rms, err := crop(acc, grid.Range{X0: 0, X1: 2, Y0: 1, Y1: 3})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if m.NX != 2 || m.NY != 2 || rms.NZ != 2 {
		t.Fatalf("cropped to %dx%dx%d, want 2x2x2", m.NX, m.NY, rms.NZ)
	}

	if _, _, err := crop(acc, grid.Range{X0: 2, X1: 6, Y0: 0, Y1: 4}); !errors.Is(err, cube.ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestLevelString(t *testing.T) {
	if Sideband.String() != "sideband" || Obsid.String() != "obsid" || Level(9).String() != "Level(9)" {
		t.Fatal("unexpected level names")
	}
}
