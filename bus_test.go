package hifiberry_test

import (
	"errors"
	"sync"
	"time"

	"github.com/gen2brain/hifiberry"
)

var errWire = errors.New("nack")

// fakeBus is an in-memory register file recording every write.
// On a paged bus writes to register 0 select the page and are not logged.
type fakeBus struct {
	mu     sync.Mutex
	paged  bool
	page   uint8
	regs   map[hifiberry.Reg]uint8
	log    []hifiberry.RegVal
	pages  int
	reads  int
	failAt map[hifiberry.Reg]bool
	// onRead overrides the value returned for a register.
	onRead func(reg hifiberry.Reg, n int) (uint8, bool)
}

func newFakeBus(paged bool) *fakeBus {
	return &fakeBus{
		paged:  paged,
		regs:   make(map[hifiberry.Reg]uint8),
		failAt: make(map[hifiberry.Reg]bool),
	}
}

func (b *fakeBus) addr(reg uint8) hifiberry.Reg {
	if b.paged {
		return hifiberry.PageReg(b.page, reg)
	}

	return hifiberry.Reg(reg)
}

func (b *fakeBus) WriteReg(reg, val uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.paged && reg == hifiberry.PageSelect {
		b.page = val
		b.pages++

		return nil
	}

	a := b.addr(reg)
	if b.failAt[a] {
		return errWire
	}

	b.regs[a] = val
	b.log = append(b.log, hifiberry.RegVal{Reg: a, Val: val})

	return nil
}

func (b *fakeBus) ReadReg(reg uint8) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a := b.addr(reg)
	b.reads++

	if b.failAt[a] {
		return 0, errWire
	}

	if b.onRead != nil {
		if v, ok := b.onRead(a, b.reads); ok {
			return v, nil
		}
	}

	return b.regs[a], nil
}

// writes returns and clears the write log.
func (b *fakeBus) writes() []hifiberry.RegVal {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.log
	b.log = nil

	return w
}

func (b *fakeBus) value(reg hifiberry.Reg) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.regs[reg]
}

func (b *fakeBus) set(reg hifiberry.Reg, val uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regs[reg] = val
}

func (b *fakeBus) fail(reg hifiberry.Reg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failAt[reg] = true
}

// sleeper records requested delays instead of sleeping.
type sleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slept = append(s.slept, d)
}

func (s *sleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t time.Duration
	for _, d := range s.slept {
		t += d
	}

	return t
}

func regs(writes []hifiberry.RegVal) []hifiberry.Reg {
	out := make([]hifiberry.Reg, len(writes))
	for i, w := range writes {
		out[i] = w.Reg
	}

	return out
}
