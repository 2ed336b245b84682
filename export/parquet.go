package export

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/cwbudde/algo-scanqc/scan/record"
)

// Row is one statistic of one feed and sideband of a scan.
type Row struct {
	ObsID    int64   `parquet:"obsid,snappy"`
	ScanID   int64   `parquet:"scanid,snappy"`
	Feed     int32   `parquet:"feed,snappy"`
	Sideband int32   `parquet:"sideband,snappy"`
	Stat     string  `parquet:"stat,dict,snappy"`
	Value    float64 `parquet:"value,snappy"`
}

// Rows flattens records into long-format rows ordered by record, feed,
// sideband and schema column. Missing values are kept as NaN.
func Rows(recs []*record.Record) []Row {
	n := 0
	for _, r := range recs {
		if r != nil {
			n += len(r.Data)
		}
	}

	rows := make([]Row, 0, n)
	for _, r := range recs {
		if r == nil {
			continue
		}

		names := r.Schema.Names()
		i := 0
		for f := 0; f < r.Feeds; f++ {
			for b := 0; b < r.Sidebands; b++ {
				for _, name := range names {
					rows = append(rows, Row{
						ObsID:    int64(r.ObsID),
						ScanID:   int64(r.ScanID),
						Feed:     int32(f),
						Sideband: int32(b),
						Stat:     name,
						Value:    r.Data[i],
					})
					i++
				}
			}
		}
	}

	return rows
}

// WriteRecords writes recs to w as a Parquet file of Rows.
func WriteRecords(w io.Writer, recs []*record.Record) error {
	writer := parquet.NewGenericWriter[Row](w)

	if _, err := writer.Write(Rows(recs)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("export: write rows: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("export: close parquet writer: %w", err)
	}

	return nil
}

// WriteParquet writes recs to a Parquet file at path.
func WriteParquet(path string, recs []*record.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}

	if err := WriteRecords(file, recs); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}
