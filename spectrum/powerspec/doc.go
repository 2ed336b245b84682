// Package powerspec estimates power spectra of (ra, dec, frequency) map
// cubes.
//
// Spectrum3D bins the full 3D spectrum in spherical wavenumber shells.
// Spectrum1D2D separates the line-of-sight spectrum (frequency axis only)
// from the angular spectrum (spatial axes only) so systematics along either
// direction can be told apart.
//
// Transforms are separable per-axis complex DFTs. Power normalization uses
// the physical voxel size from [Cosmology]:
//
//	P(k) = |F(k)|² · dx·dy·dz / (nx·ny·nz)
//
// Wavenumbers are angular (k = 2π·f) in 1/Mpc.
package powerspec
