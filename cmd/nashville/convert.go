package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/nashville"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/storage"
	"github.com/tsawler/nashville/transpose"
)

var (
	convertKey    string
	convertMode   string
	convertOutput string
	convertDebug  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [chart.pdf]",
	Short: "Convert a chord chart to Nashville numbers",
	Long: `Converts every chord symbol in a PDF chord chart to its Nashville number
in the given key and writes the result next to the input, or to --output.

Example:
  nashville convert chart.pdf --key G
  nashville convert chart.pdf -k A -m minor -o chart_numbers.pdf
  nashville convert chart.pdf -k E -m auto --debug`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var validateCmd = &cobra.Command{
	Use:   "validate [chart.pdf]",
	Short: "Check whether a chart can be converted",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	convertCmd.Flags().StringVarP(&convertKey, "key", "k", "", "key of the chart (e.g. C, F#, Bb)")
	convertCmd.Flags().StringVarP(&convertMode, "mode", "m", "major", "major, minor or auto")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default nashville_<input>)")
	convertCmd.Flags().BoolVar(&convertDebug, "debug", false, "print intermediate results as JSON")
	_ = convertCmd.MarkFlagRequired("key")
}

// converter applies the loaded configuration to a chart.
func converter(path string) *nashville.Converter {
	return nashville.Open(path).
		WithConfig(cfg.Pipeline()).
		WithPipelineOptions(
			pipeline.WithSink(observe.NewZapSink(logger)),
			pipeline.WithStore(storage.New(cfg.Storage.TempURL)),
		)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := convertOutput
	if out == "" {
		out = filepath.Join(filepath.Dir(in), "nashville_"+filepath.Base(in))
	}

	conv := converter(in).Key(convertKey)
	if strings.EqualFold(convertMode, "auto") {
		conv = conv.AutoMode()
	} else {
		conv = conv.Mode(transpose.Mode(convertMode))
	}
	if convertDebug || cfg.Debug {
		conv = conv.Debug()
	}

	res, err := conv.WriteTo(out)
	if res != nil && res.Debug != nil {
		if encErr := printJSON(cmd, res.ConversionResult); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Converted %d of %d chords (key %s %s) in %.2fs\n",
		res.ChordsConverted, res.ChordsIdentified, res.Key, res.Mode, res.ProcessingTimeSeconds)
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	for _, skipped := range res.SkippedAnnotations {
		fmt.Fprintf(w, "  skipped: %s\n", skipped)
	}
	fmt.Fprintf(w, "Wrote %s\n", out)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	res, err := converter(args[0]).Validate()
	if res == nil {
		return err
	}
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
