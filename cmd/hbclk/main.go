// Command hbclk computes and applies HiFiBerry DAC clock configurations from userspace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gen2brain/hifiberry/internal/config"
	"github.com/gen2brain/hifiberry/internal/logging"
)

var opts = config.Defaults()

var rootCmd = &cobra.Command{
	Use:   "hbclk",
	Short: "HiFiBerry DAC clock tool",
	Long: `hbclk solves PLL coefficients and divider chains for the PCM512x based DAC+ boards
and the DAC2 HD clock generator, and programs them over I2C when no kernel driver owns the board.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(opts, cmd); err != nil {
			return err
		}

		if err := opts.Validate(); err != nil {
			return err
		}

		logging.Initialize(opts.Logging())

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()

	f.StringVarP(&opts.Config, "config", "c", "", "Path to the TOML configuration file")

	bindFlag(f.StringVar, "Bus", "I2C driver (periph, i2cdev)")
	bindFlag(f.StringVar, "BusName", "I2C bus name or /dev/i2c-N path, first bus when empty")
	bindFlag(f.IntVar, "CodecAddr", "Codec I2C address")
	bindFlag(f.IntVar, "ClockAddr", "DAC2 HD clock generator I2C address")

	bindFlag(f.StringVar, "Board", "Board kind (dacplus, dacpluspro, dac2hd)")
	bindFlag(f.IntVar, "PLLIn", "Codec GPIO carrying the PLL reference, 0 for none")
	bindFlag(f.IntVar, "PLLOut", "Codec GPIO carrying the PLL output, 0 for none")
	bindFlag(f.Uint64Var, "Sysclk", "Rate of the clock on SCK in Hz, 0 when absent")
	bindFlag(f.BoolVar, "Master", "Run the codec as clock provider")
	bindFlag(f.StringVar, "DAIFormat", "DAI format, e.g. i2s,nb_nf")

	bindFlag(f.Uint32Var, "OverclockPLL", "PLL overclock percentage")
	bindFlag(f.Uint32Var, "OverclockDSP", "DSP overclock percentage")
	bindFlag(f.Uint32Var, "OverclockDAC", "DAC overclock percentage")

	bindFlag(f.BoolVar, "DisableStandby", "Keep the codec out of standby")
	bindFlag(f.BoolVar, "DisablePowerdown", "Make suspend and resume no-ops")
	bindFlag(f.BoolVar, "AutoMute", "Drive the mute GPIO with the stream")
	bindFlag(f.StringVar, "MuteGPIO", "Mute line, chip:offset for the character device or a periph pin name")

	bindFlag(f.StringVar, "Tables", "DAC2 HD PLL table file (or directory for the bytes format)")
	bindFlag(f.StringVar, "TablesFormat", "Table file format (toml, bytes, ihex)")

	bindFlag(f.StringVar, "MetricsListen", "Address of the metrics endpoint")

	bindFlag(f.StringVar, "LoggingLevel", "Global logging level (debug, info, warn, error)")
	bindFlag(f.StringVar, "LoggingFormat", "Logging format (text, json)")

	bindFlag(f.BoolVar, "Force", "Touch the board even when a kernel driver is bound, force the I2C address")

	rootCmd.AddCommand(solveCmd, planCmd, detectCmd, pcm512xCmd, dacplusCmd, dac2hdCmd, serveCmd)
}

// bindFlag binds the Options field name to a persistent flag named after it,
// defaulting to the current field value.
func bindFlag[T any](bind func(p *T, name string, value T, usage string), field, usage string) {
	p := reflect.ValueOf(opts).Elem().FieldByName(field).Addr().Interface().(*T)
	bind(p, config.FieldNameToFlag(field), *p, usage)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
