package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-scanqc/noise/onef"
)

func (a *app) noisefitCmd() *cobra.Command {
	var rate float64
	var guard int

	cmd := &cobra.Command{
		Use:   "noisefit [file ...]",
		Short: "Fit the 1/f noise model to timestreams.",
		Long: `Read whitespace-separated samples from each file (standard input when
no file is given) and print sigma0, the knee frequency and the spectral
index. NaN and Inf samples are repaired before fitting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []onef.Option{onef.WithSampleRate(rate), onef.WithGuard(guard)}
			if a.cfg.Seed != 0 {
				opts = append(opts, onef.WithSeed(a.cfg.Seed))
			}
			fitter := onef.New(opts...)

			var fits []fitResult
			if len(args) == 0 {
				r, err := fitReader(fitter, "stdin", cmd.InOrStdin())
				if err != nil {
					return err
				}
				fits = append(fits, r)
			}

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}

				r, err := fitReader(fitter, path, f)
				_ = f.Close()
				if err != nil {
					return err
				}
				fits = append(fits, r)
			}

			return printFits(cmd.OutOrStdout(), cmd.ErrOrStderr(), fits)
		},
	}

	cmd.Flags().Float64Var(&rate, "rate", onef.DefaultSampleRate, "Sample rate in Hz")
	cmd.Flags().IntVar(&guard, "guard", onef.DefaultGuard, "Trailing samples dropped before fitting")

	return cmd
}

type fitResult struct {
	name    string
	samples int
	params  onef.Params
	err     error
}

func fitReader(fitter *onef.Fitter, name string, r io.Reader) (fitResult, error) {
	x, err := readSamples(r)
	if err != nil {
		return fitResult{}, fmt.Errorf("%s: %w", name, err)
	}

	p, err := fitter.Fit(x)

	return fitResult{name: name, samples: len(x), params: p, err: err}, nil
}

// readSamples parses whitespace-separated floats. NaN and Inf are
// accepted in any case.
func readSamples(r io.Reader) ([]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var x []float64
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				x = append(x, v)
				continue
			}

			return nil, fmt.Errorf("sample %d: %w", len(x), err)
		}
		x = append(x, v)
	}

	return x, sc.Err()
}

func printFits(w, errw io.Writer, fits []fitResult) error {
	warn := color.New(color.FgYellow)
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 5, 64) }

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Input", "Samples", "Sigma0", "Fknee", "Alpha", "Attempt"})

	var data [][]string
	for _, r := range fits {
		if r.err != nil {
			_, _ = warn.Fprintf(errw, "%s: %v\n", r.name, r.err)
		}

		data = append(data, []string{
			r.name,
			strconv.Itoa(r.samples),
			format(r.params.Sigma0),
			format(r.params.Fknee),
			format(r.params.Alpha),
			strconv.Itoa(r.params.Attempt),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}

	return table.Render()
}
