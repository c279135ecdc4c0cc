package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gen2brain/hifiberry"
	"github.com/gen2brain/hifiberry/internal/config"
)

var dac2hdCmd = &cobra.Command{
	Use:   "dac2hd",
	Short: "Drive the DAC2 HD clock generator and PCM1796",
}

var dac2hdProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Start the clock generator and initialize the codec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		board, err := openDAC2HD(nil, &cl)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: clock %s, tables %v\n", board.Name(), hifiberry.FormatRate(board.Clock().Rate()), board.Clock().Tables().Buckets())
		fmt.Fprint(out, board.Codec().Controls())

		return nil
	},
}

var dac2hdSetRateCmd = &cobra.Command{
	Use:   "set-rate <hz>",
	Short: "Load the PLL table of a sample rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("rate %q: %w", args[0], hifiberry.ErrInvalidArgument)
		}

		var cl closers
		defer cl.Close()

		board, err := openDAC2HD(nil, &cl)
		if err != nil {
			return err
		}

		return board.Clock().SetRate(rate)
	},
}

var (
	hdStream streamFlags
	hdUnmute bool
)

var dac2hdHwParamsCmd = &cobra.Command{
	Use:   "hw-params",
	Short: "Switch the clock generator and program the codec for a stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := hdStream.stream()
		if err != nil {
			return err
		}

		var cl closers
		defer cl.Close()

		board, err := openDAC2HD(nil, &cl)
		if err != nil {
			return err
		}

		if err := board.HwParams(s.Rate, s.Format); err != nil {
			return err
		}

		if hdUnmute {
			if err := board.Codec().MuteStream(false); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "stream:   %s\nsclk:     %s\nbclk:     %s\n", s,
			hifiberry.FormatRate(board.Codec().Sysclk()), hifiberry.FormatRate(s.Rate*hifiberry.DAC2HD_BCLK_RATIO))

		return nil
	},
}

var (
	exportFormat string
	exportOutput string
)

var dac2hdExportCmd = &cobra.Command{
	Use:   "export-tables",
	Short: "Write the PLL tables in use as TOML, Intel HEX or raw byte files",
	Long: `export-tables writes the compiled-in tables, or the ones named by --tables, to --output.
The bytes format writes one <bucket>.bin file per table into the --output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadTables()
		if err != nil {
			return err
		}

		if exportFormat == config.TablesBytes {
			return exportBytes(tables, exportOutput)
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()

			w = f
		}

		switch exportFormat {
		case config.TablesIHex:
			return tables.WriteHex(w)
		case config.TablesTOML:
			return tables.WriteTOML(w)
		default:
			return fmt.Errorf("tables format %q: %w", exportFormat, hifiberry.ErrInvalidArgument)
		}
	},
}

func exportBytes(tables *hifiberry.PLLTables, dir string) error {
	if dir == "" || dir == "-" {
		return fmt.Errorf("bytes format needs an output directory: %w", hifiberry.ErrInvalidArgument)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, bucket := range tables.Buckets() {
		regs := tables.Table(bucket)

		data := make([]byte, 0, 2*len(regs))
		for _, rv := range regs {
			data = append(data, uint8(rv.Reg), rv.Val)
		}

		if err := os.WriteFile(filepath.Join(dir, string(bucket)+".bin"), data, 0o644); err != nil {
			return err
		}
	}

	return nil
}

func init() {
	hdStream.register(dac2hdHwParamsCmd.Flags())
	dac2hdHwParamsCmd.Flags().BoolVar(&hdUnmute, "unmute", false, "Unmute the codec once the clock runs")

	dac2hdExportCmd.Flags().StringVar(&exportFormat, "format", config.TablesTOML, "Output format (toml, ihex, bytes)")
	dac2hdExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "Output file, - for stdout")

	dac2hdCmd.AddCommand(dac2hdProbeCmd, dac2hdSetRateCmd, dac2hdHwParamsCmd, dac2hdExportCmd)
}
