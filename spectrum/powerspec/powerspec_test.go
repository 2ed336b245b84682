package powerspec

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
	"github.com/cwbudde/algo-scanqc/internal/testutil"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

func noiseCube(seed int64, nx, ny, nz int) *cube.Cube {
	c := cube.New(nx, ny, nz)
	copy(c.Data, testutil.DeterministicGaussian(seed, 1, c.Len()))

	return c
}

func TestParsevalAcrossAxes(t *testing.T) {
	c := noiseCube(1, 6, 5, 8)
	sp := Spacing{DX: 2, DY: 3, DZ: 0.5}
	e := New()

	buf := e.load(c)
	if err := e.transformAxes(buf, c, 0, 1, 2); err != nil {
		t.Fatalf("transform error: %v", err)
	}

	vol := sp.DX * sp.DY * sp.DZ
	pow := e.power(buf, vol/float64(c.Len()))

	var got, want float64
	for i, p := range pow {
		got += p
		want += vol * c.Data[i] * c.Data[i]
	}

	if !numeric.NearlyEqual(got, want, 1e-10) {
		t.Fatalf("sum P = %v, want %v", got, want)
	}
}

func TestBackendsAgree(t *testing.T) {
	c := noiseCube(2, 6, 5, 12)
	sp := DefaultCosmology().Spacing(8.0 / 60)
	edges := KEdges3D()

	auto, err := New().Spectrum3D(c, edges, sp)
	if err != nil {
		t.Fatalf("auto backend: %v", err)
	}

	ref, err := New(WithBackend(BackendGonum)).Spectrum3D(c, edges, sp)
	if err != nil {
		t.Fatalf("gonum backend: %v", err)
	}

	if d, err := testutil.MaxAbsDiff(auto.K, ref.K); err != nil || d > 1e-12 {
		t.Fatalf("bin centres differ: max diff %v, err %v", d, err)
	}

	for i := range auto.P {
		if !numeric.NearlyEqual(auto.P[i], ref.P[i], 1e-9) || auto.NModes[i] != ref.NModes[i] {
			t.Fatalf("bin %d: auto %v (%d) gonum %v (%d)", i, auto.P[i], auto.NModes[i], ref.P[i], ref.NModes[i])
		}
	}
}

func TestSpectrum3DPopulatesAllBins(t *testing.T) {
	c := noiseCube(3, 16, 16, 64)
	s, err := New().Spectrum3D(c, KEdges3D(), DefaultCosmology().Spacing(8.0/60))
	if err != nil {
		t.Fatalf("Spectrum3D error: %v", err)
	}

	if len(s.K) != NumEdges-1 || len(s.P) != NumEdges-1 {
		t.Fatalf("unexpected bin count %d", len(s.P))
	}
	testutil.RequireFinite(t, s.P)

	wantModes := []int{2, 4, 22, 62, 202, 676, 2058, 3377, 3972}
	for i, n := range s.NModes {
		if n != wantModes[i] {
			t.Fatalf("bin %d: %d modes, want %d", i, n, wantModes[i])
		}
		if s.P[i] <= 0 {
			t.Fatalf("bin %d: power %v, want > 0", i, s.P[i])
		}
	}
}

func TestSpectrum3DWhiteNoiseLevel(t *testing.T) {
	// Unit white noise has flat power equal to the voxel volume.
	c := noiseCube(4, 16, 16, 64)
	sp := Spacing{DX: 1, DY: 1, DZ: 1}
	edges := []float64{0.5, 1, 2, 4}

	s, err := New().Spectrum3D(c, edges, sp)
	if err != nil {
		t.Fatalf("Spectrum3D error: %v", err)
	}

	for i, p := range s.P {
		if s.NModes[i] < 1000 {
			continue
		}
		if math.Abs(p-1) > 0.15 {
			t.Fatalf("bin %d: power %v, want ~1", i, p)
		}
	}
}

func TestConstantCubeHasNoPowerAboveZero(t *testing.T) {
	c := cube.New(4, 4, 8)
	numeric.Fill(c.Data, 3)

	s, err := New().Spectrum3D(c, []float64{0.1, 1, 10}, Spacing{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("Spectrum3D error: %v", err)
	}

	for i, p := range s.P {
		if math.Abs(p) > 1e-20 {
			t.Fatalf("bin %d: power %v, want 0", i, p)
		}
	}
}

func TestSpectrum1D2DPlaneWaves(t *testing.T) {
	const nx, ny, nz = 8, 8, 16
	sp := Spacing{DX: 1, DY: 1, DZ: 1}

	// Line of sight: cos(2π·3k/nz) in every pixel.
	line := cube.New(nx, ny, nz)
	for i := range nx {
		for j := range ny {
			for k := range nz {
				line.Set(i, j, k, math.Cos(2*math.Pi*3*float64(k)/nz))
			}
		}
	}

	k0 := 2 * math.Pi * 2 / nx
	edges := []float64{0.9 * k0, 1.1 * k0, 5 * k0}

	got, err := New().Spectrum1D2D(line, edges, sp)
	if err != nil {
		t.Fatalf("Spectrum1D2D error: %v", err)
	}

	if len(got.Line) != nz/2 || len(got.KZ) != nz/2 {
		t.Fatalf("line length %d", len(got.Line))
	}

	for k, p := range got.Line {
		want := 0.0
		if k == 2 {
			want = nz / 4.0
		}
		if math.Abs(p-want) > 1e-9 {
			t.Fatalf("line[%d] = %v, want %v", k, p, want)
		}
	}

	if !numeric.NearlyEqual(got.KZ[2], 2*math.Pi*3/nz, 1e-12) {
		t.Fatalf("KZ[2] = %v", got.KZ[2])
	}

	// Angular: cos(2π·2i/nx) in every channel and row.
	ang := cube.New(nx, ny, nz)
	for i := range nx {
		for j := range ny {
			for k := range nz {
				ang.Set(i, j, k, math.Cos(2*math.Pi*2*float64(i)/nx))
			}
		}
	}

	got, err = New().Spectrum1D2D(ang, edges, sp)
	if err != nil {
		t.Fatalf("Spectrum1D2D error: %v", err)
	}

	// Four modes share |k| = k0; two of them carry nx·ny/4 each.
	if got.Angular.NModes[0] != 4 {
		t.Fatalf("modes = %d, want 4", got.Angular.NModes[0])
	}

	if math.Abs(got.Angular.P[0]-nx*ny/8.0) > 1e-9 {
		t.Fatalf("angular P = %v, want %v", got.Angular.P[0], nx*ny/8.0)
	}
}

func TestInputValidation(t *testing.T) {
	e := New()
	sp := Spacing{DX: 1, DY: 1, DZ: 1}

	if _, err := e.Spectrum3D(cube.New(0, 4, 4), KEdges3D(), sp); !errors.Is(err, ErrEmptyCube) {
		t.Fatalf("expected ErrEmptyCube, got %v", err)
	}

	if _, err := e.Spectrum3D(cube.New(2, 2, 2), []float64{1}, sp); !errors.Is(err, ErrInvalidEdges) {
		t.Fatalf("expected ErrInvalidEdges, got %v", err)
	}

	if _, err := e.Spectrum1D2D(cube.New(2, 2, 2), KEdges1D2D(), Spacing{}); !errors.Is(err, ErrInvalidSpacing) {
		t.Fatalf("expected ErrInvalidSpacing, got %v", err)
	}
}

func TestDefaultCosmology(t *testing.T) {
	c := DefaultCosmology()
	if !numeric.NearlyEqual(c.PixelMpc(1), 76.22/0.7, 1e-12) {
		t.Fatalf("PixelMpc(1) = %v", c.PixelMpc(1))
	}

	want := 32.2e-3 * 699.62 / 0.7 * 3.9 * 3.9 / 115
	if !numeric.NearlyEqual(c.ChannelMpc(), want, 1e-12) {
		t.Fatalf("ChannelMpc = %v, want %v", c.ChannelMpc(), want)
	}
}
