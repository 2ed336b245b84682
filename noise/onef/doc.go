// Package onef fits the one-over-f noise model
//
//	P(f) = sigma0² · (1 + (f/fknee)^alpha)
//
// to detector timestreams.
//
// sigma0 comes from the standard deviation of first differences divided
// by sqrt(2), which ignores slow drifts. The knee frequency and spectral
// index are then fitted by weighted least squares to the log-binned
// periodogram. Fit attempts run in a fixed order: the index free from
// (-2, 5 Hz), then the index fixed at -1 from 10 Hz. When every attempt
// fails the result is +Inf in all three parameters, which is distinct from
// the NaN returned for unusable data.
package onef
