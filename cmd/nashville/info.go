package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tsawler/nashville/chord"
	"github.com/tsawler/nashville/transpose"
)

var (
	chordsKey  string
	chordsMode string
)

var chordsCmd = &cobra.Command{
	Use:   "chords [symbol...]",
	Short: "Convert chord symbols typed on the command line",
	Long: `Parses each argument as a chord symbol and prints its Nashville number.

Example:
  nashville chords -k G G C D7 Em "D/F#"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChords,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the supported keys",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(transpose.SupportedKeys(), " "))
	},
}

func init() {
	chordsCmd.Flags().StringVarP(&chordsKey, "key", "k", "C", "key")
	chordsCmd.Flags().StringVarP(&chordsMode, "mode", "m", "major", "major, minor or auto")
}

func runChords(cmd *cobra.Command, args []string) error {
	if err := transpose.ValidateKey(chordsKey); err != nil {
		return err
	}

	var parsed []chord.Chord
	for _, arg := range args {
		if c, ok := chord.Parse(arg); ok {
			parsed = append(parsed, c)
		}
	}

	var mode transpose.Mode
	if strings.EqualFold(chordsMode, "auto") {
		mode = transpose.DetectMode(parsed, chordsKey)
	} else {
		m, err := transpose.ParseMode(chordsMode)
		if err != nil {
			return err
		}
		mode = m
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "# %s %s\n", chordsKey, mode)
	for _, arg := range args {
		c, ok := chord.Parse(arg)
		if !ok {
			fmt.Fprintf(w, "%s\t-\tnot a chord\n", arg)
			continue
		}
		conv, err := transpose.ConvertDetailed(c, chordsKey, mode)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t%v\n", arg, err)
			continue
		}
		note := ""
		if conv.Chromatic {
			note = "chromatic"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c, conv.Number, note)
	}
	return w.Flush()
}
