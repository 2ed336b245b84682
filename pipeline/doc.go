// Package pipeline runs the quality-control statistics over batches of
// obsids.
//
// One obsid is one unit of work: every scan is passed through the scan
// statistics engine, the accepted sideband maps are combined through the
// sideband, feed, scan and obsid levels, and the resulting spectral
// chi-squared values are written back into the scan records. Units run
// concurrently on a bounded worker pool; each owns its random generators,
// so a seeded run is reproducible regardless of scheduling.
package pipeline
