// Package scanstats computes the per-scan quality statistics: pointing and
// timing summaries, per-channel chi-squared reductions, azimuth-binned
// residuals, higher moments, event counts, noise-model fits, housekeeping
// means, sun and moon sidelobe flags and the single-sideband spectral
// statistic. It also bins the accepted sidebands onto the field grid for
// the hierarchical combination.
//
// The record layout comes from a record.Schema passed to New; statistics the
// schema does not name are skipped. Values that cannot be computed stay
// NaN.
package scanstats
