package hifiberry

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// ControlType is the value type of a control.
type ControlType int

const (
	ControlInteger ControlType = iota
	ControlBoolean
	ControlEnumerated
)

// String implements fmt.Stringer.
func (t ControlType) String() string {
	switch t {
	case ControlBoolean:
		return "BOOL"
	case ControlEnumerated:
		return "ENUM"
	default:
		return "INT"
	}
}

// Control is a named runtime setting of a device.
type Control struct {
	name   string
	typ    ControlType
	min    int
	max    int
	values int
	items  []string
	get    func() []int
	put    func([]int) (bool, error)
}

// Name returns the control name.
func (c *Control) Name() string {
	if c == nil {
		return ""
	}

	return c.name
}

// Type returns the value type.
func (c *Control) Type() ControlType {
	if c == nil {
		return ControlInteger
	}

	return c.typ
}

// NumValues returns the number of values, one per channel for switches.
func (c *Control) NumValues() int {
	if c == nil {
		return 0
	}

	return c.values
}

// Range returns the inclusive value range.
func (c *Control) Range() (int, int) {
	if c == nil {
		return 0, 0
	}

	return c.min, c.max
}

// Items returns the item names of an enumerated control.
func (c *Control) Items() []string {
	if c == nil {
		return nil
	}

	return c.items
}

// Value returns the value at index id.
func (c *Control) Value(id int) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("control is nil")
	}

	if id < 0 || id >= c.values {
		return 0, fmt.Errorf("control %s: index %d out of bounds: %w", c.name, id, ErrInvalidArgument)
	}

	return c.get()[id], nil
}

// Values returns all values of the control.
func (c *Control) Values() []int {
	if c == nil {
		return nil
	}

	return c.get()
}

// SetValue sets the value at index id, keeping the others.
// It reports whether the device state changed.
func (c *Control) SetValue(id, val int) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("control is nil")
	}

	if id < 0 || id >= c.values {
		return false, fmt.Errorf("control %s: index %d out of bounds: %w", c.name, id, ErrInvalidArgument)
	}

	vals := c.get()
	vals[id] = val

	return c.SetValues(vals...)
}

// SetValues sets all values at once.
func (c *Control) SetValues(vals ...int) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("control is nil")
	}

	if len(vals) != c.values {
		return false, fmt.Errorf("control %s: %d values, want %d: %w", c.name, len(vals), c.values, ErrInvalidArgument)
	}

	for _, v := range vals {
		if v < c.min || v > c.max {
			return false, fmt.Errorf("control %s: value %d outside %d..%d: %w", c.name, v, c.min, c.max, ErrInvalidArgument)
		}
	}

	return c.put(vals)
}

// Controls is the set of controls of one device.
type Controls struct {
	Ctls   []*Control
	ctlMap map[string]*Control
}

func newControls(ctls ...*Control) *Controls {
	cs := &Controls{
		Ctls:   ctls,
		ctlMap: make(map[string]*Control, len(ctls)),
	}

	for _, ctl := range ctls {
		cs.ctlMap[ctl.name] = ctl
	}

	return cs
}

// NumCtls returns the number of controls.
func (cs *Controls) NumCtls() int {
	if cs == nil {
		return 0
	}

	return len(cs.Ctls)
}

// CtlByName returns the control with the given name.
func (cs *Controls) CtlByName(name string) (*Control, error) {
	if cs == nil {
		return nil, fmt.Errorf("controls are nil")
	}

	ctl, ok := cs.ctlMap[name]
	if !ok {
		return nil, fmt.Errorf("control not found: %s", name)
	}

	return ctl, nil
}

// Get returns the first value of the named control.
func (cs *Controls) Get(name string) (int, error) {
	ctl, err := cs.CtlByName(name)
	if err != nil {
		return 0, err
	}

	return ctl.Value(0)
}

// Set sets every value of the named control to val.
func (cs *Controls) Set(name string, val int) (bool, error) {
	ctl, err := cs.CtlByName(name)
	if err != nil {
		return false, err
	}

	vals := make([]int, ctl.values)
	for i := range vals {
		vals[i] = val
	}

	return ctl.SetValues(vals...)
}

// Limit lowers the maximum of the named control and clamps its current values.
func (cs *Controls) Limit(name string, max int) error {
	ctl, err := cs.CtlByName(name)
	if err != nil {
		return err
	}

	if max < ctl.min || max > ctl.max {
		return fmt.Errorf("control %s: limit %d outside %d..%d: %w", name, max, ctl.min, ctl.max, ErrInvalidArgument)
	}

	ctl.max = max

	vals := ctl.get()
	clamped := false
	for i, v := range vals {
		if v > max {
			vals[i] = max
			clamped = true
		}
	}

	if clamped {
		_, err = ctl.put(vals)
	}

	return err
}

// String renders the controls as a table.
func (cs *Controls) String() string {
	if cs == nil {
		return ""
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tType\tRange\tValue")

	for _, ctl := range cs.Ctls {
		vals := make([]string, 0, ctl.values)
		for _, v := range ctl.get() {
			if v >= 0 && v < len(ctl.items) {
				vals = append(vals, ctl.items[v])
			} else {
				vals = append(vals, fmt.Sprint(v))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d..%d\t%s\n", ctl.name, ctl.typ, ctl.min, ctl.max, strings.Join(vals, " "))
	}
	_ = w.Flush()

	return sb.String()
}

func newPCM512xControls(c *PCM512x) *Controls {
	overclock := func(name string, max int, field func(*Overclock) *uint32) *Control {
		return &Control{
			name:   name,
			typ:    ControlInteger,
			max:    max,
			values: 1,
			get: func() []int {
				o := c.Overclock()

				return []int{int(*field(&o))}
			},
			put: func(v []int) (bool, error) {
				c.mu.Lock()
				defer c.mu.Unlock()

				if c.bias != BiasOff && c.bias != BiasStandby {
					return false, fmt.Errorf("%s: %s while %s: %w", c.opt.Name, name, c.bias, ErrBusy)
				}

				p := field(&c.overclock)
				changed := *p != uint32(v[0])
				*p = uint32(v[0])

				return changed, nil
			},
		}
	}

	playback := &Control{
		name:   "Digital Playback Switch",
		typ:    ControlBoolean,
		max:    1,
		values: 2,
		get: func() []int {
			left, right := c.DigitalMute()

			return []int{boolInt(left), boolInt(right)}
		},
		put: func(v []int) (bool, error) {
			return c.SetDigitalMute(v[0] != 0, v[1] != 0)
		},
	}

	volume := &Control{
		name:   "Digital Playback Volume",
		typ:    ControlInteger,
		max:    255,
		values: 2,
		get: func() []int {
			l, errl := c.rm.Read(PCM512x_DIGITAL_VOLUME_2)
			r, errr := c.rm.Read(PCM512x_DIGITAL_VOLUME_3)
			if errl != nil || errr != nil {
				return []int{0, 0}
			}

			return []int{255 - int(l), 255 - int(r)}
		},
		put: func(v []int) (bool, error) {
			left, _ := c.rm.Read(PCM512x_DIGITAL_VOLUME_2)
			right, _ := c.rm.Read(PCM512x_DIGITAL_VOLUME_3)

			ops := []RegOp{
				{Reg: PCM512x_DIGITAL_VOLUME_2, Val: uint8(255 - v[0])},
				{Reg: PCM512x_DIGITAL_VOLUME_3, Val: uint8(255 - v[1])},
			}
			if err := c.rm.Exec(ops); err != nil {
				return false, fmt.Errorf("%s: volume: %w", c.opt.Name, err)
			}

			return left != ops[0].Val || right != ops[1].Val, nil
		},
	}

	return newControls(
		volume,
		overclock("Max Overclock PLL", PCM512x_OVERCLOCK_PLL_MAX, func(o *Overclock) *uint32 { return &o.PLL }),
		overclock("Max Overclock DSP", PCM512x_OVERCLOCK_DSP_MAX, func(o *Overclock) *uint32 { return &o.DSP }),
		overclock("Max Overclock DAC", PCM512x_OVERCLOCK_DAC_MAX, func(o *Overclock) *uint32 { return &o.DAC }),
		playback,
	)
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
