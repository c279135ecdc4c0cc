package hifiberry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gen2brain/hifiberry/internal/logging"
)

// Reg is a register address.
// On a paged map, addresses from PageBase upwards encode page and offset.
type Reg uint16

const (
	// PageBase is the first virtual address of page 0 on a paged map.
	PageBase Reg = 0x100
	// PageLen is the size of one register page window.
	PageLen Reg = 0x100
	// PageSelect is the page selector register, present on every page.
	PageSelect uint8 = 0x00
)

// PageReg returns the virtual address of offset on page.
func PageReg(page, offset uint8) Reg {
	return PageBase + Reg(page)*PageLen + Reg(offset)
}

// RegVal is a single register write.
type RegVal struct {
	Reg Reg
	Val uint8
}

// String returns a human-readable representation of the write.
func (rv RegVal) String() string {
	return fmt.Sprintf("0x%03x=0x%02x", uint16(rv.Reg), rv.Val)
}

// RegOp is one step of a register sequence.
// A zero Mask is a plain write, otherwise only the masked bits are updated.
type RegOp struct {
	Reg  Reg
	Mask uint8
	Val  uint8
}

// String returns a human-readable representation of the step.
func (op RegOp) String() string {
	if op.Mask == 0 {
		return fmt.Sprintf("0x%03x = 0x%02x", uint16(op.Reg), op.Val)
	}

	return fmt.Sprintf("0x%03x & 0x%02x = 0x%02x", uint16(op.Reg), op.Mask, op.Val)
}

// Bus is a byte-wide register transport addressed 0-255.
type Bus interface {
	ReadReg(reg uint8) (uint8, error)
	WriteReg(reg, val uint8) error
}

// RegmapConfig describes the register layout of a device.
type RegmapConfig struct {
	// Name is used in log records.
	Name string
	// Paged selects pages through register 0 for addresses at or above PageBase.
	Paged bool
	// Cache keeps written and read values so UpdateBits and Sync avoid bus reads.
	Cache bool
	// Defaults seeds the cache with the power-on values.
	Defaults []RegVal
	// Volatile reports registers that must always be read from the device.
	Volatile func(Reg) bool
	// SoftReset is written after a table when Apply is called with reset.
	SoftReset *RegVal
	// Settle is the delay after SoftReset. Defaults to 10ms.
	Settle time.Duration
	// Sleep replaces time.Sleep, used by tests.
	Sleep func(time.Duration)
}

// Regmap is a register map over a Bus, with page selection and an optional value cache.
type Regmap struct {
	mu       sync.Mutex
	bus      Bus
	cfg      RegmapConfig
	page     int
	cache    map[Reg]uint8
	defaults map[Reg]uint8
	sleep    func(time.Duration)
	log      *slog.Logger
}

// NewRegmap creates a register map for bus.
func NewRegmap(bus Bus, cfg RegmapConfig) *Regmap {
	if cfg.Settle == 0 {
		cfg.Settle = 10 * time.Millisecond
	}

	r := &Regmap{
		bus:      bus,
		cfg:      cfg,
		page:     -1,
		cache:    make(map[Reg]uint8),
		defaults: make(map[Reg]uint8),
		sleep:    cfg.Sleep,
		log:      logging.GetLogger("regmap"),
	}

	if r.sleep == nil {
		r.sleep = time.Sleep
	}

	for _, d := range cfg.Defaults {
		r.defaults[d.Reg] = d.Val
		if cfg.Cache {
			r.cache[d.Reg] = d.Val
		}
	}

	return r
}

// Name returns the configured device name.
func (r *Regmap) Name() string {
	if r == nil {
		return ""
	}

	return r.cfg.Name
}

// Write writes val to reg.
func (r *Regmap) Write(reg Reg, val uint8) error {
	if r == nil || r.bus == nil {
		return ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(reg, val)
}

// Read returns the value of reg, from the cache when possible.
func (r *Regmap) Read(reg Reg) (uint8, error) {
	if r == nil || r.bus == nil {
		return 0, ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(reg)
}

// UpdateBits replaces the bits of reg selected by mask with val.
// The register is only written when its value changes.
func (r *Regmap) UpdateBits(reg Reg, mask, val uint8) error {
	if r == nil || r.bus == nil {
		return ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateBits(reg, mask, val)
}

// Apply writes regs in order and, when reset is set, issues the soft reset
// write and waits for the settle time.
// The first failing write aborts the sequence; earlier writes are not rolled back.
func (r *Regmap) Apply(regs []RegVal, reset bool) error {
	if r == nil || r.bus == nil {
		return ErrClosed
	}

	if reset && r.cfg.SoftReset == nil {
		return fmt.Errorf("%s: no soft reset register: %w", r.cfg.Name, ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Debug("Applying register table", "device", r.cfg.Name, "writes", len(regs), "reset", reset)

	for _, rv := range regs {
		if err := r.write(rv.Reg, rv.Val); err != nil {
			return err
		}
	}

	if !reset {
		return nil
	}

	if err := r.write(r.cfg.SoftReset.Reg, r.cfg.SoftReset.Val); err != nil {
		return err
	}

	r.sleep(r.cfg.Settle)

	return nil
}

// Exec runs ops in order and stops at the first failure.
func (r *Regmap) Exec(ops []RegOp) error {
	if r == nil || r.bus == nil {
		return ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range ops {
		var err error
		if op.Mask == 0 {
			err = r.write(op.Reg, op.Val)
		} else {
			err = r.updateBits(op.Reg, op.Mask, op.Val)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// Poll reads reg every interval until cond holds or timeout expires.
// It returns the last value read and ErrTimeout when cond never held.
func (r *Regmap) Poll(ctx context.Context, reg Reg, cond func(uint8) bool, interval, timeout time.Duration) (uint8, error) {
	if r == nil || r.bus == nil {
		return 0, ErrClosed
	}

	attempts := 1
	if interval > 0 {
		attempts += int(timeout / interval)
	}

	var val uint8
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return val, err
		}

		v, err := r.Read(reg)
		if err != nil {
			return v, err
		}

		val = v
		if cond(val) {
			return val, nil
		}

		if i < attempts-1 {
			r.sleep(interval)
		}
	}

	return val, fmt.Errorf("%s: poll reg 0x%03x: %w", r.cfg.Name, uint16(reg), ErrTimeout)
}

// Sync rewrites every cached value that differs from its power-on default,
// in ascending register order. Used after the device lost its state.
func (r *Regmap) Sync() error {
	if r == nil || r.bus == nil {
		return ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.page = -1

	regs := make([]Reg, 0, len(r.cache))
	for reg := range r.cache {
		regs = append(regs, reg)
	}

	slices.Sort(regs)

	for _, reg := range regs {
		val := r.cache[reg]
		if def, ok := r.defaults[reg]; ok && def == val {
			continue
		}

		if err := r.write(reg, val); err != nil {
			return err
		}
	}

	return nil
}

// Invalidate drops cached values and the selected page, so the next access goes to the device.
func (r *Regmap) Invalidate() {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.page = -1
	clear(r.cache)
	if r.cfg.Cache {
		for reg, val := range r.defaults {
			r.cache[reg] = val
		}
	}
}

func (r *Regmap) updateBits(reg Reg, mask, val uint8) error {
	orig, err := r.read(reg)
	if err != nil {
		return err
	}

	tmp := orig&^mask | val&mask
	if tmp == orig {
		return nil
	}

	return r.write(reg, tmp)
}

func (r *Regmap) volatile(reg Reg) bool {
	return !r.cfg.Cache || (r.cfg.Volatile != nil && r.cfg.Volatile(reg))
}

func (r *Regmap) locate(reg Reg) (uint8, error) {
	if r.cfg.Paged && reg >= PageBase {
		page := int((reg - PageBase) / PageLen)
		offset := uint8((reg - PageBase) % PageLen)

		if page > 0xff {
			return 0, fmt.Errorf("%s: reg 0x%x out of range: %w", r.cfg.Name, uint16(reg), ErrInvalidArgument)
		}

		if page != r.page {
			if err := r.bus.WriteReg(PageSelect, uint8(page)); err != nil {
				r.page = -1

				return 0, &StageError{Stage: StageRegisterWrite, Reg: Reg(PageSelect), Val: uint8(page), Err: fmt.Errorf("%w: %w", ErrBus, err)}
			}
			r.page = page
		}

		return offset, nil
	}

	if reg > 0xff {
		return 0, fmt.Errorf("%s: reg 0x%x out of range: %w", r.cfg.Name, uint16(reg), ErrInvalidArgument)
	}

	return uint8(reg), nil
}

func (r *Regmap) write(reg Reg, val uint8) error {
	addr, err := r.locate(reg)
	if err != nil {
		return err
	}

	if err := r.bus.WriteReg(addr, val); err != nil {
		return &StageError{Stage: StageRegisterWrite, Reg: reg, Val: val, Err: fmt.Errorf("%w: %w", ErrBus, err)}
	}

	if !r.volatile(reg) {
		r.cache[reg] = val
	}

	return nil
}

func (r *Regmap) read(reg Reg) (uint8, error) {
	if !r.volatile(reg) {
		if val, ok := r.cache[reg]; ok {
			return val, nil
		}
	}

	addr, err := r.locate(reg)
	if err != nil {
		return 0, err
	}

	val, err := r.bus.ReadReg(addr)
	if err != nil {
		return 0, &StageError{Stage: StageRegisterRead, Reg: reg, Err: fmt.Errorf("%w: %w", ErrBus, err)}
	}

	if !r.volatile(reg) {
		r.cache[reg] = val
	}

	return val, nil
}
