package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/gen2brain/hifiberry"
	"github.com/gen2brain/hifiberry/internal/config"
	"github.com/gen2brain/hifiberry/internal/logging"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()

	return err
})

// closers releases buses and lines in reverse order of opening.
type closers []io.Closer

func (c *closers) add(cl io.Closer) {
	*c = append(*c, cl)
}

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i].Close())
	}

	return errors.Join(errs...)
}

// checkKernel refuses to touch a board a kernel driver owns, unless forced.
func checkKernel(kind hifiberry.BoardKind) error {
	if opts.Force {
		return nil
	}

	cards, err := hifiberry.EnumerateCards()
	if err != nil {
		logging.GetLogger("hbclk").Debug("Card enumeration failed", "error", err)

		return nil
	}

	if card, ok := hifiberry.FindBoardCard(cards, kind); ok {
		return fmt.Errorf("card %d (%s) is bound to a kernel driver, use --force: %w", card.ID, card.Name, hifiberry.ErrBusy)
	}

	return nil
}

// openBus opens a register bus to the device at addr with the configured driver.
func openBus(addr int, cl *closers) (hifiberry.Bus, error) {
	switch opts.Bus {
	case config.DriverI2CDev:
		path := opts.BusName
		if path == "" {
			path = "/dev/i2c-1"
		}

		dev, err := hifiberry.OpenI2CDev(path, uint16(addr), opts.Force)
		if err != nil {
			return nil, err
		}
		cl.add(dev)

		return dev, nil

	default:
		if err := hostInit(); err != nil {
			return nil, fmt.Errorf("periph host init: %w", err)
		}

		bus, err := hifiberry.OpenI2C(opts.BusName, 0)
		if err != nil {
			return nil, err
		}
		cl.add(bus)

		return hifiberry.NewI2CBus(bus, uint16(addr)), nil
	}
}

// openMutePin resolves the mute line: "chip:offset" requests a character device
// line, anything else is looked up as a periph pin name.
func openMutePin(cl *closers) (hifiberry.OutputPin, error) {
	name := opts.MuteGPIO
	if name == "" {
		return nil, nil
	}

	if chip, off, ok := strings.Cut(name, ":"); ok {
		offset, err := strconv.Atoi(off)
		if err != nil {
			return nil, fmt.Errorf("mute gpio %q: %w", name, hifiberry.ErrInvalidArgument)
		}

		line, err := hifiberry.OpenLine(chip, offset, false)
		if err != nil {
			return nil, err
		}
		cl.add(line)

		return line, nil
	}

	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("mute gpio %q not found: %w", name, hifiberry.ErrInvalidArgument)
	}

	return hifiberry.PeriphPin{Pin: pin}, nil
}

// openCodec probes a PCM512x with the configured options. mute may be nil.
func openCodec(obs hifiberry.Observer, mute hifiberry.OutputPin, cl *closers) (*hifiberry.PCM512x, error) {
	bus, err := openBus(opts.CodecAddr, cl)
	if err != nil {
		return nil, err
	}

	codec := hifiberry.NewPCM512x(hifiberry.NewRegmap(bus, hifiberry.PCM512xRegmapConfig()), hifiberry.PCM512xOptions{
		PLLIn:            uint8(opts.PLLIn),
		PLLOut:           uint8(opts.PLLOut),
		Sysclk:           opts.Sysclk,
		DisableStandby:   opts.DisableStandby,
		DisablePowerdown: opts.DisablePowerdown,
		AutoMute:         opts.AutoMute,
		MutePin:          mute,
		Overclock:        opts.Overclock(),
		Observer:         obs,
	})

	if err := codec.Probe(); err != nil {
		return nil, err
	}

	return codec, nil
}

// openDACPlus probes the codec and initializes the DAC+ board around it.
func openDACPlus(obs hifiberry.Observer, cl *closers) (*hifiberry.DACPlus, error) {
	if err := checkKernel(hifiberry.BoardDACPlus); err != nil {
		return nil, err
	}

	mute, err := openMutePin(cl)
	if err != nil {
		return nil, err
	}

	// The board owns the amplifier line on the DAC+.
	codec, err := openCodec(obs, nil, cl)
	if err != nil {
		return nil, err
	}

	board := hifiberry.NewDACPlus(codec, hifiberry.DACPlusOptions{
		Slave:    !opts.Master && opts.Board != string(hifiberry.BoardDACPlusPro),
		AutoMute: opts.AutoMute,
		MutePin:  mute,
	})

	if err := board.Init(); err != nil {
		return nil, err
	}

	return board, nil
}

// loadTables reads the DAC2 HD PLL tables, the compiled ones when no file is configured.
func loadTables() (*hifiberry.PLLTables, error) {
	if opts.Tables == "" {
		return hifiberry.NewPLLTables(nil)
	}

	var src hifiberry.TableSource

	switch opts.TablesFormat {
	case config.TablesIHex:
		f, err := os.Open(opts.Tables)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		src = hifiberry.HexTables{R: f}

	case config.TablesBytes:
		bt := make(hifiberry.ByteTables)

		files, err := filepath.Glob(filepath.Join(opts.Tables, "*.bin"))
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			bucket, err := hifiberry.ParseRateBucket(strings.TrimSuffix(filepath.Base(file), ".bin"))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}

			if bt[bucket], err = os.ReadFile(file); err != nil {
				return nil, err
			}
		}

		src = bt

	default:
		data, err := os.ReadFile(opts.Tables)
		if err != nil {
			return nil, err
		}

		src = hifiberry.TOMLTables(data)
	}

	return hifiberry.NewPLLTables(src)
}

// dac2hdCodecAddr returns the configured codec address, or the PCM1796 address
// when the DAC+ default was left in place.
func dac2hdCodecAddr() int {
	if opts.CodecAddr == hifiberry.PCM512x_I2C_ADDR {
		return hifiberry.PCM1796_I2C_ADDR
	}

	return opts.CodecAddr
}

// openDAC2HD probes the clock generator and the PCM1796 of a DAC2 HD.
func openDAC2HD(obs hifiberry.Observer, cl *closers) (*hifiberry.DAC2HD, error) {
	if err := checkKernel(hifiberry.BoardDAC2HD); err != nil {
		return nil, err
	}

	tables, err := loadTables()
	if err != nil {
		return nil, fmt.Errorf("pll tables: %w", err)
	}

	clkBus, err := openBus(opts.ClockAddr, cl)
	if err != nil {
		return nil, err
	}

	clk := hifiberry.NewDAC2HDClock(hifiberry.NewRegmap(clkBus, hifiberry.DAC2HDRegmapConfig()), tables, obs)
	if err := clk.Probe(); err != nil {
		return nil, err
	}

	codecBus, err := openBus(dac2hdCodecAddr(), cl)
	if err != nil {
		return nil, err
	}

	mute, err := openMutePin(cl)
	if err != nil {
		return nil, err
	}

	codec := hifiberry.NewPCM1796(hifiberry.NewRegmap(codecBus, hifiberry.PCM1796RegmapConfig()), hifiberry.PCM1796Options{
		SCLK:     clk,
		MutePin:  mute,
		AutoMute: opts.AutoMute,
	})

	if err := codec.Probe(); err != nil {
		return nil, err
	}

	board := hifiberry.NewDAC2HD(clk, codec)
	if err := board.Init(); err != nil {
		return nil, err
	}

	return board, nil
}
