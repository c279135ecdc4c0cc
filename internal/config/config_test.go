package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry"
	"github.com/gen2brain/hifiberry/internal/config"
)

const testTOML = `
[bus]
driver = "i2cdev"
name = "/dev/i2c-1"
codec_addr = 0x4c

[board]
kind = "dac2hd"
sysclk_hz = 24576000
master = true

[overclock]
pll = 10
dac = 5

[flags]
auto_mute = true
mute_gpio = "gpiochip0:4"

[tables]
path = "/etc/hifiberry/dac2hd.hex"
format = "ihex"

[logging]
level = "debug"
format = "json"
journal = true
regmap = "warn"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hifiberry.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad(t *testing.T) {
	opts, err := config.Load(writeConfig(t, testTOML))
	require.NoError(t, err)

	assert.Equal(t, config.DriverI2CDev, opts.Bus)
	assert.Equal(t, "/dev/i2c-1", opts.BusName)
	assert.Equal(t, 0x4c, opts.CodecAddr)
	assert.Equal(t, hifiberry.DAC2HD_CLK_I2C_ADDR, opts.ClockAddr, "default kept")
	assert.Equal(t, "dac2hd", opts.Board)
	assert.Equal(t, uint64(24576000), opts.Sysclk)
	assert.True(t, opts.Master)
	assert.Equal(t, hifiberry.Overclock{PLL: 10, DAC: 5}, opts.Overclock())
	assert.True(t, opts.AutoMute)
	assert.Equal(t, "gpiochip0:4", opts.MuteGPIO)
	assert.Equal(t, config.TablesIHex, opts.TablesFormat)

	logCfg := opts.Logging()
	assert.Equal(t, "debug", logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
	assert.True(t, logCfg.Journal)
	assert.Equal(t, map[string]string{"regmap": "warn"}, logCfg.Modules)
}

func TestLoadMissingFile(t *testing.T) {
	opts, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	def := config.Defaults()
	def.Config = opts.Config
	assert.Equal(t, def, opts)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"Driver", "[bus]\ndriver = \"spi\"\n"},
		{"Board", "[board]\nkind = \"amp2\"\n"},
		{"Overclock", "[overclock]\npll = 101\n"},
		{"NegativeOverclock", "[overclock]\ndsp = -1\n"},
		{"Address", "[bus]\ncodec_addr = 0x80\n"},
		{"TablesFormat", "[tables]\nformat = \"json\"\n"},
		{"Type", "[board]\nmaster = \"yes\"\n"},
		{"Syntax", "[board\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	t.Setenv("HIFIBERRY_BOARD", "dacpluspro")
	t.Setenv("HIFIBERRY_CODEC_ADDR", "0x4d")
	t.Setenv("HIFIBERRY_OVERCLOCK_PLL", "20")

	opts, err := config.Load(writeConfig(t, testTOML))
	require.NoError(t, err)

	assert.Equal(t, "dacpluspro", opts.Board)
	assert.Equal(t, 0x4d, opts.CodecAddr)
	assert.Equal(t, uint32(20), opts.OverclockPLL)
	assert.Equal(t, uint32(5), opts.OverclockDAC, "file value kept")
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("HIFIBERRY_BOARD", "dacpluspro")

	opts := config.Defaults()
	opts.Config = writeConfig(t, testTOML)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Board, config.FieldNameToFlag("Board"), opts.Board, "")
	cmd.Flags().IntVar(&opts.PLLIn, config.FieldNameToFlag("PLLIn"), 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--board", "dacplus", "--pll-in", "3"}))

	require.NoError(t, config.LoadConfig(opts, cmd))

	assert.Equal(t, "dacplus", opts.Board)
	assert.Equal(t, 3, opts.PLLIn)
	assert.Equal(t, config.DriverI2CDev, opts.Bus, "unset flags still read the file")
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Board":         "board",
		"PLLIn":         "pll-in",
		"PLLOut":        "pll-out",
		"MuteGPIO":      "mute-gpio",
		"OverclockPLL":  "overclock-pll",
		"MetricsListen": "metrics-listen",
		"BusName":       "bus-name",
		"DAIFormat":     "dai-format",
	}

	for in, want := range tests {
		assert.Equal(t, want, config.FieldNameToFlag(in), in)
	}
}
