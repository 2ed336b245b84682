package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.com/cwbudde/algo-scanqc/mapping/cube"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
)

// ErrEmptyCube is returned when a cube has no voxels.
var ErrEmptyCube = errors.New("export: empty cube")

// WriteCubeFITS writes c as a 64-bit float primary image with NAXIS1 along
// ra, NAXIS2 along dec and NAXIS3 along frequency. Extra header cards are
// appended as given.
func WriteCubeFITS(w io.Writer, c *cube.Cube, cards ...fitsio.Card) error {
	if c == nil || c.Len() == 0 {
		return ErrEmptyCube
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("export: create fits: %w", err)
	}

	if err := writeImage(f, c, cards); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close fits: %w", err)
	}

	return nil
}

func writeImage(f *fitsio.File, c *cube.Cube, cards []fitsio.Card) error {
	im := fitsio.NewImage(-64, []int{c.NX, c.NY, c.NZ})

	if err := im.Header().Append(cards...); err != nil {
		_ = im.Close()
		return fmt.Errorf("export: fits header: %w", err)
	}

	if err := im.Write(fitsOrder(c)); err != nil {
		_ = im.Close()
		return fmt.Errorf("export: fits data: %w", err)
	}

	if err := f.Write(im); err != nil {
		_ = im.Close()
		return fmt.Errorf("export: fits hdu: %w", err)
	}

	if err := im.Close(); err != nil {
		return fmt.Errorf("export: close fits image: %w", err)
	}

	return nil
}

// fitsOrder transposes the frequency-fastest cube into FITS order, where
// the first axis varies fastest.
func fitsOrder(c *cube.Cube) []float64 {
	out := make([]float64, c.Len())
	for i := 0; i < c.NX; i++ {
		for j := 0; j < c.NY; j++ {
			for k := 0; k < c.NZ; k++ {
				out[(k*c.NY+j)*c.NX+i] = c.At(i, j, k)
			}
		}
	}

	return out
}

// GridCards returns the linear world-coordinate cards of the pixel range r
// of g. Reference pixels are 1-based at the first pixel centre.
func GridCards(g *grid.Grid, r grid.Range) []fitsio.Card {
	dRA := g.RAEdges[1] - g.RAEdges[0]
	dDec := g.PixelDeg()

	return []fitsio.Card{
		{Name: "OBJECT", Value: g.Field.Name},
		{Name: "CTYPE1", Value: "RA", Comment: "deg"},
		{Name: "CRPIX1", Value: 1.0},
		{Name: "CRVAL1", Value: r.RAEdges[0] + dRA/2},
		{Name: "CDELT1", Value: dRA},
		{Name: "CTYPE2", Value: "DEC", Comment: "deg"},
		{Name: "CRPIX2", Value: 1.0},
		{Name: "CRVAL2", Value: r.DecEdges[0] + dDec/2},
		{Name: "CDELT2", Value: dDec},
		{Name: "CTYPE3", Value: "CHANNEL"},
	}
}
