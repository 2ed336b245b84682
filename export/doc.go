// Package export writes pipeline output to disk: statistics records as
// long-format Parquet rows and map cubes as FITS images.
package export
