package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gen2brain/hifiberry"
)

var pcm512xCmd = &cobra.Command{
	Use:   "pcm512x",
	Short: "Drive a bare PCM512x codec",
}

// daiFormat returns the configured interface format, with the provider role
// taken from --master when the format string does not name one.
func daiFormat() (hifiberry.DAIFormat, error) {
	f, err := hifiberry.ParseDAIFormat(opts.DAIFormat)
	if err != nil {
		return 0, err
	}

	if f.Master() == 0 {
		if opts.Master {
			f |= hifiberry.SND_SOC_DAIFMT_CBM_CFM
		} else {
			f |= hifiberry.SND_SOC_DAIFMT_CBS_CFS
		}
	}

	return f, nil
}

// startStream runs the codec through the stream setup sequence and returns the applied plan.
func startStream(ctx context.Context, codec *hifiberry.PCM512x, s hifiberry.StreamFormat, ratio uint32, unmute bool) (*hifiberry.ClockPlan, error) {
	if err := codec.SetBCLKRatio(ratio); err != nil {
		return nil, err
	}

	if err := codec.SetBiasLevel(hifiberry.BiasStandby); err != nil {
		return nil, err
	}

	frame := hifiberry.PcmFormatToBits(s.Format) * s.Channels
	if ratio != 0 {
		frame = ratio
	}

	c, err := codec.Startup(frame)
	if err != nil {
		return nil, err
	}

	if !c.Allows(s.Rate) {
		return nil, fmt.Errorf("rate %d not reachable for %d bit frames: %w", s.Rate, frame, hifiberry.ErrUnsatisfiable)
	}

	plan, err := codec.HwParams(s.HwParams())
	if err != nil {
		return nil, err
	}

	for _, level := range []hifiberry.BiasLevel{hifiberry.BiasPrepare, hifiberry.BiasOn} {
		if err := codec.SetBiasLevel(level); err != nil {
			return nil, err
		}
	}

	if unmute {
		if err := codec.MuteStream(ctx, false); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

func printPlan(cmd *cobra.Command, s hifiberry.StreamFormat, plan *hifiberry.ClockPlan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "stream:   %s\n", s)

	if plan == nil {
		fmt.Fprintln(out, "clocks:   provided by the host")

		return
	}

	fmt.Fprint(out, plan)
}

var pcm512xProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Reset the codec and print its controls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		mute, err := openMutePin(&cl)
		if err != nil {
			return err
		}

		codec, err := openCodec(nil, mute, &cl)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: bias %s, sck %s\n", codec.Name(), codec.BiasLevel(), hifiberry.FormatRate(codec.Sysclk()))
		fmt.Fprint(out, codec.Controls())

		return nil
	},
}

var (
	hwStream streamFlags
	hwRatio  uint32
	hwUnmute bool
)

var pcm512xHwParamsCmd = &cobra.Command{
	Use:   "hw-params",
	Short: "Program the codec for a stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := hwStream.stream()
		if err != nil {
			return err
		}

		f, err := daiFormat()
		if err != nil {
			return err
		}

		var cl closers
		defer cl.Close()

		mute, err := openMutePin(&cl)
		if err != nil {
			return err
		}

		codec, err := openCodec(nil, mute, &cl)
		if err != nil {
			return err
		}

		if err := codec.SetFormat(f); err != nil {
			return err
		}

		plan, err := startStream(cmd.Context(), codec, s, hwRatio, hwUnmute)
		if err != nil {
			return err
		}

		printPlan(cmd, s, plan)

		return nil
	},
}

var muteLeft, muteRight bool

func newMuteCmd(use, short string, mute bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cl closers
			defer cl.Close()

			pin, err := openMutePin(&cl)
			if err != nil {
				return err
			}

			codec, err := openCodec(nil, pin, &cl)
			if err != nil {
				return err
			}

			if _, err := codec.SetDigitalMute(!muteLeft, !muteRight); err != nil {
				return err
			}

			return codec.MuteStream(cmd.Context(), mute)
		},
	}

	if !mute {
		cmd.Flags().BoolVar(&muteLeft, "mute-left", false, "Keep the left channel switched off")
		cmd.Flags().BoolVar(&muteRight, "mute-right", false, "Keep the right channel switched off")
	}

	return cmd
}

var pcm512xOverclockCmd = &cobra.Command{
	Use:   "overclock",
	Short: "Validate the configured overclock percentages against the codec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		codec, err := openCodec(nil, nil, &cl)
		if err != nil {
			return err
		}

		if err := codec.SetOverclock(opts.Overclock()); err != nil {
			return err
		}

		oc := codec.Overclock()
		fmt.Fprintf(cmd.OutOrStdout(), "pll +%d%%, dsp +%d%%, dac +%d%%, sck max %s\n",
			oc.PLL, oc.DSP, oc.DAC, hifiberry.FormatRate(oc.SCKMax(opts.PLLOut != 0)))

		return nil
	},
}

var pcm512xControlsCmd = &cobra.Command{
	Use:   "controls [NAME=VALUE]...",
	Short: "Print or set codec controls",
	Long: `controls sets each NAME=VALUE pair and prints the resulting control table.
Multi-value controls take comma separated values, e.g. "Digital Playback Volume=200,200".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		codec, err := openCodec(nil, nil, &cl)
		if err != nil {
			return err
		}

		for _, arg := range args {
			if err := setControl(codec.Controls(), arg); err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), codec.Controls())

		return nil
	},
}

// setControl applies one NAME=VALUE argument. Enumerated values may be given by item name.
func setControl(cs *hifiberry.Controls, arg string) error {
	i := strings.LastIndex(arg, "=")
	if i < 0 {
		return fmt.Errorf("control %q: want NAME=VALUE: %w", arg, hifiberry.ErrInvalidArgument)
	}

	ctl, err := cs.CtlByName(arg[:i])
	if err != nil {
		return err
	}

	parts := strings.Split(arg[i+1:], ",")
	vals := make([]int, len(parts))

	for n, p := range parts {
		p = strings.TrimSpace(p)
		if idx := indexOf(ctl.Items(), p); idx >= 0 {
			vals[n] = idx

			continue
		}

		switch strings.ToLower(p) {
		case "on", "true":
			vals[n] = 1
		case "off", "false":
			vals[n] = 0
		default:
			v, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("control %s: value %q: %w", ctl.Name(), p, hifiberry.ErrInvalidArgument)
			}
			vals[n] = v
		}
	}

	if len(vals) == 1 && ctl.NumValues() > 1 {
		for len(vals) < ctl.NumValues() {
			vals = append(vals, vals[0])
		}
	}

	_, err = ctl.SetValues(vals...)

	return err
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if strings.EqualFold(it, s) {
			return i
		}
	}

	return -1
}

func init() {
	hwStream.register(pcm512xHwParamsCmd.Flags())
	pcm512xHwParamsCmd.Flags().Uint32Var(&hwRatio, "bclk-ratio", 0, "Bit clocks per frame, 0 for channels times width")
	pcm512xHwParamsCmd.Flags().BoolVar(&hwUnmute, "unmute", false, "Unmute the stream once the clocks run")

	pcm512xCmd.AddCommand(pcm512xProbeCmd, pcm512xHwParamsCmd, pcm512xOverclockCmd, pcm512xControlsCmd,
		newMuteCmd("mute", "Mute playback and wait for the analog mute", true),
		newMuteCmd("unmute", "Unmute playback and wait for the analog outputs", false),
	)
}
