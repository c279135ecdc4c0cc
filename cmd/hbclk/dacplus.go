package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gen2brain/hifiberry"
)

var dacplusCmd = &cobra.Command{
	Use:   "dacplus",
	Short: "Drive a DAC+ or DAC+ Pro board",
}

var dacplusInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the board and report whether the Pro oscillators are fitted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		board, err := openDACPlus(nil, &cl)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: format %s\n", board.Name(), board.Codec().Format())
		if board.IsPro() {
			fmt.Fprintf(out, "oscillator: %s (%s)\n", board.Clock().Oscillator(), hifiberry.FormatRate(board.Clock().Rate()))
		}

		return nil
	},
}

var (
	dpStream streamFlags
	dpUnmute bool
)

var dacplusHwParamsCmd = &cobra.Command{
	Use:   "hw-params",
	Short: "Select the oscillator and program the board for a stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := dpStream.stream()
		if err != nil {
			return err
		}

		var cl closers
		defer cl.Close()

		board, err := openDACPlus(nil, &cl)
		if err != nil {
			return err
		}

		c, err := board.Startup(hifiberry.PcmFormatToBits(s.Format) * s.Channels)
		if err != nil {
			return err
		}

		if !c.Allows(s.Rate) {
			return fmt.Errorf("rate %d: %w", s.Rate, hifiberry.ErrUnsatisfiable)
		}

		plan, err := board.HwParams(s.Rate, s.Format, s.Channels)
		if err != nil {
			return err
		}

		if dpUnmute {
			if err := board.Codec().MuteStream(cmd.Context(), false); err != nil {
				return err
			}
		}

		printPlan(cmd, s, plan)

		return nil
	},
}

var dacplusShutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Mute the amplifier, turn the LED off and park the Pro clock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cl closers
		defer cl.Close()

		board, err := openDACPlus(nil, &cl)
		if err != nil {
			return err
		}

		if err := board.Codec().MuteStream(cmd.Context(), true); err != nil {
			return err
		}

		return board.Shutdown()
	},
}

var dacplusMuteExtCmd = &cobra.Command{
	Use:       "mute-ext on|off",
	Short:     "Drive the external amplifier mute line",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.MuteGPIO == "" {
			return fmt.Errorf("no mute gpio configured: %w", hifiberry.ErrInvalidArgument)
		}

		var cl closers
		defer cl.Close()

		board, err := openDACPlus(nil, &cl)
		if err != nil {
			return err
		}

		_, err = board.SetMuteExt(args[0] == "on")

		return err
	},
}

func init() {
	dpStream.register(dacplusHwParamsCmd.Flags())
	dacplusHwParamsCmd.Flags().BoolVar(&dpUnmute, "unmute", false, "Unmute the stream once the clocks run")

	dacplusCmd.AddCommand(dacplusInitCmd, dacplusHwParamsCmd, dacplusShutdownCmd, dacplusMuteExtCmd)
}
