package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/astrogo/fitsio"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-scanqc/export"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/pipeline"
	"github.com/cwbudde/algo-scanqc/scan/record"
	"github.com/cwbudde/algo-scanqc/synth"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [obsid ...]",
		Short: "Process obsids of synthetic scans and print the obsid statistics.",
		Long: `Generate the scans of every obsid on the configured field, compute the
per-scan statistics and the hierarchical power-spectrum chi-squared, and
print one summary line per obsid. With --output the full records are
written as long-format Parquet rows; with --fits-dir every obsid map is
written as a FITS cube.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			obsids := []int{1}
			if len(args) > 0 {
				obsids = obsids[:0]
				for _, arg := range args {
					id, err := strconv.Atoi(arg)
					if err != nil {
						return fmt.Errorf("invalid obsid %q: %w", arg, err)
					}
					obsids = append(obsids, id)
				}
			}

			return a.run(cmd, obsids)
		},
	}

	cmd.Flags().String("output", "", "Write all records to this Parquet file")
	cmd.Flags().Int("scans", 0, "Scans generated per obsid")
	cmd.Flags().String("fits-dir", "", "Write the obsid maps as FITS cubes into this directory")

	return cmd
}

func (a *app) run(cmd *cobra.Command, obsids []int) error {
	cfg := a.cfg

	fitsDir, err := cmd.Flags().GetString("fits-dir")
	if err != nil {
		return err
	}

	field, err := cfg.SelectedField()
	if err != nil {
		return err
	}

	genOpts := []synth.Option{
		synth.WithLayout(cfg.Feeds, cfg.Sidebands, cfg.Channels, cfg.Samples),
		synth.WithField(field),
		synth.WithScansPerObsid(cfg.Scans),
	}
	if cfg.Seed != 0 {
		genOpts = append(genOpts, synth.WithSeed(cfg.Seed))
	}
	gen := synth.New(genOpts...)

	runner, err := pipeline.New(synth.Source{Gen: gen}, field, cfg.Feeds, cfg.Sidebands, cfg.Channels, cfg.RunnerOptions(a.logger)...)
	if err != nil {
		return err
	}

	results, err := runner.Run(cmd.Context(), obsids)
	if err != nil {
		return err
	}

	if err := printResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	if fitsDir != "" {
		if err := writeMaps(fitsDir, runner.Grid(), results); err != nil {
			return err
		}
	}

	if cfg.Output == "" {
		return nil
	}

	var recs []*record.Record
	for _, res := range results {
		recs = append(recs, res.Records...)
	}

	if err := export.WriteParquet(cfg.Output, recs); err != nil {
		return err
	}

	_, _ = color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(recs), cfg.Output)

	return nil
}

// writeMaps writes obsid_<id>.fits for every obsid with an accepted map.
func writeMaps(dir string, g *grid.Grid, results []pipeline.Result) error {
	for _, res := range results {
		if res.Hier.Map == nil {
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf("obsid_%d.fits", res.ObsID))
		f, err := os.Create(path)
		if err != nil {
			return err
		}

		cards := append(export.GridCards(g, res.Hier.Range), fitsio.Card{Name: "OBSID", Value: res.ObsID})
		if err := export.WriteCubeFITS(f, res.Hier.Map, cards...); err != nil {
			_ = f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}

		if err := f.Close(); err != nil {
			return err
		}
	}

	return nil
}

func printResults(w io.Writer, results []pipeline.Result) error {
	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed, color.Bold).SprintFunc()

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Obsid", "Scans", "Status", "ps_o_chi2"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, res := range results {
		status, stat := ok("ok"), strconv.FormatFloat(res.Hier.Obsid, 'f', 3, 64)
		if res.Err != nil {
			status, stat = failed("failed"), "-"
		}

		data = append(data, []string{
			strconv.Itoa(res.ObsID),
			strconv.Itoa(len(res.Records)),
			status,
			stat,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}

	return table.Render()
}
