// Command bdfrt round-trips a bulk data deck: read, optionally
// rescale, check references, and write back with a chosen field size.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LetterRay/bulkdata/cards"
	"github.com/LetterRay/bulkdata/model"
)

func main() {
	var (
		size      int
		isDouble  bool
		output    string
		geomCheck bool

		xyzScale         float64
		massScale        float64
		timeScale        float64
		gravityScale     float64
		temperatureScale float64
	)

	root := &cobra.Command{
		Use:   "bdfrt <deck>",
		Short: "read, rescale and rewrite a bulk data deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			m := model.New(log)
			if err := m.ReadFile(args[0]); err != nil {
				return err
			}

			scales := cards.NewScales(xyzScale, massScale, timeScale,
				gravityScale, temperatureScale)
			if scales != cards.UnitScales() {
				m.Convert(scales)
			}

			if geomCheck {
				if missing := m.GeomCheck(); !missing.Empty() {
					log.Warn("dangling references", zap.String("missing", missing.String()))
				}
			}

			if output == "" {
				return m.WriteBulkData(os.Stdout, size, isDouble, true)
			}
			return m.WriteFile(output, size, isDouble)
		},
	}

	root.Flags().IntVar(&size, "size", 8, "field width, 8 or 16")
	root.Flags().BoolVar(&isDouble, "double", false, "double precision large-field output")
	root.Flags().StringVarP(&output, "output", "o", "", "output path (default stdout)")
	root.Flags().BoolVar(&geomCheck, "check", false, "report dangling cross references")
	root.Flags().Float64Var(&xyzScale, "xyz-scale", 1, "length conversion factor")
	root.Flags().Float64Var(&massScale, "mass-scale", 1, "mass conversion factor")
	root.Flags().Float64Var(&timeScale, "time-scale", 1, "time conversion factor")
	root.Flags().Float64Var(&gravityScale, "gravity-scale", 1, "gravity conversion factor")
	root.Flags().Float64Var(&temperatureScale, "temperature-scale", 1, "temperature conversion factor")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
