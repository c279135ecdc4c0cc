package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gen2brain/hifiberry"
)

var solveCmd = &cobra.Command{
	Use:   "solve <pllin-hz> <pll-hz>",
	Short: "Solve PLL coefficients for a reference and target rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rates [2]uint64
		for i, arg := range args {
			v, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("rate %q: %w", arg, hifiberry.ErrInvalidArgument)
			}
			rates[i] = v
		}

		c, err := hifiberry.SolvePLL(rates[0], rates[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, c)
		if c.Approximate {
			fmt.Fprintf(out, "approximate: %s instead of %s\n", hifiberry.FormatRate(c.RealRate), hifiberry.FormatRate(rates[1]))
		}

		return nil
	},
}

// streamFlags describe a stream either directly or by an audio file.
type streamFlags struct {
	rate     uint64
	format   string
	channels uint32
	file     string
}

func (s *streamFlags) register(f *pflag.FlagSet) {
	f.Uint64VarP(&s.rate, "rate", "r", 48000, "Sample rate in Hz")
	f.StringVarP(&s.format, "format", "f", "S32_LE", "Sample format")
	f.Uint32Var(&s.channels, "channels", 2, "Number of channels")
	f.StringVar(&s.file, "file", "", "Take rate, format and channels from a WAV or MP3 file")
}

func (s *streamFlags) stream() (hifiberry.StreamFormat, error) {
	if s.file == "" {
		format, err := hifiberry.ParsePcmFormat(s.format)
		if err != nil {
			return hifiberry.StreamFormat{}, err
		}

		return hifiberry.StreamFormat{Rate: s.rate, Channels: s.channels, Format: format}, nil
	}

	f, err := os.Open(s.file)
	if err != nil {
		return hifiberry.StreamFormat{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(s.file), ".mp3") {
		return hifiberry.StreamFromMP3(f)
	}

	return hifiberry.StreamFromWAV(f)
}

var (
	planStream streamFlags
	planRatio  uint32
	planOps    bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the PCM512x clock tree for a stream without touching hardware",
	Long: `plan resolves the PCM512x provider-mode clock tree for a stream from the configured
SCK rate, PLL GPIOs and overclock percentages, and prints the rates and dividers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := planStream.stream()
		if err != nil {
			return err
		}

		req := s.ClockRequest()
		req.BCLKRatio = planRatio
		req.PLLIn = uint8(opts.PLLIn)
		req.PLLOut = uint8(opts.PLLOut)

		plan, err := hifiberry.Resolve(req, hifiberry.ClockInputs{SysclkRate: opts.Sysclk, Overclock: opts.Overclock()})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stream:   %s\n", s)
		fmt.Fprint(out, plan)

		if planOps {
			printOps(cmd, plan.Ops())
		}

		return nil
	},
}

func printOps(cmd *cobra.Command, ops []hifiberry.RegOp) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REG\tMASK\tVALUE")

	for _, op := range ops {
		mask := "-"
		if op.Mask != 0 {
			mask = fmt.Sprintf("0x%02x", op.Mask)
		}

		fmt.Fprintf(w, "0x%03x\t%s\t0x%02x\n", uint16(op.Reg), mask, op.Val)
	}

	w.Flush()
}

func init() {
	planStream.register(planCmd.Flags())
	planCmd.Flags().Uint32Var(&planRatio, "bclk-ratio", 0, "Bit clocks per frame, 0 for channels times width")
	planCmd.Flags().BoolVar(&planOps, "ops", false, "Print the register writes")
}
