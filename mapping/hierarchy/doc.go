// Package hierarchy combines binned maps upward through sideband, feed,
// scan and obsid levels and evaluates the spectral chi-squared of each
// combined map.
//
// Each level keeps a running inverse-variance sum per voxel:
//
//	Sum += map/rms²,  W += 1/rms²   (rms > 0 only)
//	map  = Sum/W,     rms = 1/sqrt(W)   (W > 0, zero elsewhere)
//
// Sideband maps use the analytic transfer function; feed, scan and obsid
// maps stack the sidebands along frequency and use the feed table. A level
// without accepted inputs reports NaN.
package hierarchy
