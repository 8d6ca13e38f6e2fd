// Package eqep controls the enhanced Quadrature Encoder Pulse modules of a
// BeagleBone through the attribute files their kernel driver exposes.
//
// Every method on RotaryEncoder reads or writes the hardware; nothing is
// cached, so values always reflect the driver's current state. Writes to
// several attributes are not atomic: if one fails, re-read the state before
// retrying.
package eqep

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/sweeney/eqep-encoder/internal/sysfs"
)

// Attribute files exposed by the eQEP driver.
const (
	AttrEnabled  = "enabled"
	AttrMode     = "mode"
	AttrPosition = "position"
	AttrPeriod   = "period"
)

// nsPerSecond converts between period in nanoseconds and frequency in Hz.
const nsPerSecond = 1e9

// Mode selects how the driver reports position.
type Mode int

const (
	// ModeAbsolute reports a running count since the last zero.
	ModeAbsolute Mode = 0
	// ModeRelative resets the count each time the unit timer overflows.
	ModeRelative Mode = 1
)

// String returns "absolute", "relative" or "invalid".
func (m Mode) String() string {
	switch m {
	case ModeAbsolute:
		return "absolute"
	case ModeRelative:
		return "relative"
	default:
		return "invalid"
	}
}

// Valid reports whether m is a mode the driver accepts.
func (m Mode) Valid() bool {
	return m == ModeAbsolute || m == ModeRelative
}

// ParseMode accepts "absolute", "relative", "0" or "1".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "absolute", "0":
		return ModeAbsolute, nil
	case "relative", "1":
		return ModeRelative, nil
	}
	return 0, fmt.Errorf("%w: mode %q", ErrInvalidArgument, s)
}

// State is a point-in-time reading of every attribute.
type State struct {
	Enabled   bool
	Mode      Mode
	Position  int64
	Period    time.Duration
	Frequency float64 // 0 when Period is 0
}

// RotaryEncoder controls one eQEP channel.
type RotaryEncoder struct {
	def    Definition
	node   *sysfs.Node
	logger *slog.Logger
}

type options struct {
	pins   PinConfigurator
	logger *slog.Logger
	root   string
}

// Option configures Open.
type Option func(*options)

// WithPinConfigurator replaces the config-pin utility.
func WithPinConfigurator(p PinConfigurator) Option {
	return func(o *options) { o.pins = p }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSysfsRoot prefixes the channel's device path with root.
func WithSysfsRoot(root string) Option {
	return func(o *options) { o.root = root }
}

// Open resolves ch, switches both of its pins to encoder mode and enables
// the module. Pin configuration is best effort: a device-tree overlay may
// already have done it, so failures are logged and ignored.
func Open(ch Channel, opts ...Option) (*RotaryEncoder, error) {
	def, err := Resolve(ch)
	if err != nil {
		return nil, err
	}

	o := options{pins: ConfigPin{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	base := def.DevicePath
	if o.root != "" {
		base = filepath.Join(o.root, def.DevicePath)
	}

	e := &RotaryEncoder{
		def:    def,
		node:   sysfs.NewNode(base),
		logger: o.logger.With("channel", def.Name),
	}
	e.logger.Info("configuring encoder", "pin_a", def.PinA, "pin_b", def.PinB, "path", base)

	for _, pin := range []string{def.PinA, def.PinB} {
		if err := o.pins.ConfigurePin(pin); err != nil {
			e.logger.Warn("pin configuration failed, continuing", "pin", pin, "error", err)
		}
	}

	if err := e.Enable(); err != nil {
		return nil, err
	}
	return e, nil
}

// Definition returns the channel this encoder controls.
func (e *RotaryEncoder) Definition() Definition {
	return e.def
}

// Enable turns the module on.
func (e *RotaryEncoder) Enable() error {
	return e.setEnabled(true)
}

// Disable turns the module off.
func (e *RotaryEncoder) Disable() error {
	return e.setEnabled(false)
}

func (e *RotaryEncoder) setEnabled(on bool) error {
	v := int64(0)
	if on {
		v = 1
	}
	if err := e.node.SetInt(AttrEnabled, v); err != nil {
		return err
	}
	e.logger.Debug("set enabled", "enabled", on)
	return nil
}

// Enabled reports whether the module is on.
func (e *RotaryEncoder) Enabled() (bool, error) {
	v, err := e.node.GetInt(AttrEnabled)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Mode returns the reporting mode. A value outside {0,1} is returned as is
// so callers can see what the driver holds.
func (e *RotaryEncoder) Mode() (Mode, error) {
	v, err := e.node.GetInt(AttrMode)
	if err != nil {
		return 0, err
	}
	m := Mode(v)
	e.logger.Debug("get mode", "mode", int(m), "name", m.String())
	return m, nil
}

// SetMode sets the reporting mode.
func (e *RotaryEncoder) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: mode must be 0 or 1, got %d", ErrInvalidArgument, int(m))
	}
	if err := e.node.SetInt(AttrMode, int64(m)); err != nil {
		return err
	}
	e.logger.Debug("set mode", "mode", int(m), "name", m.String())
	return nil
}

// SetAbsolute selects ModeAbsolute.
func (e *RotaryEncoder) SetAbsolute() error {
	return e.SetMode(ModeAbsolute)
}

// SetRelative selects ModeRelative.
func (e *RotaryEncoder) SetRelative() error {
	return e.SetMode(ModeRelative)
}

// Position returns the encoder count. In relative mode this is the count
// latched at the last unit timer overflow.
func (e *RotaryEncoder) Position() (int64, error) {
	p, err := e.node.GetInt(AttrPosition)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("get position", "position", p)
	return p, nil
}

// SetPosition overwrites the encoder count.
func (e *RotaryEncoder) SetPosition(p int64) error {
	if err := e.node.SetInt(AttrPosition, p); err != nil {
		return err
	}
	e.logger.Debug("set position", "position", p)
	return nil
}

// Zero resets the encoder count.
func (e *RotaryEncoder) Zero() error {
	return e.SetPosition(0)
}

// Period returns the unit timer period.
func (e *RotaryEncoder) Period() (time.Duration, error) {
	ns, err := e.node.GetInt(AttrPeriod)
	if err != nil {
		return 0, err
	}
	return time.Duration(ns), nil
}

// SetPeriod sets the unit timer period.
func (e *RotaryEncoder) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidArgument, d)
	}
	if err := e.node.SetInt(AttrPeriod, d.Nanoseconds()); err != nil {
		return err
	}
	e.logger.Debug("set period", "period_ns", d.Nanoseconds())
	return nil
}

// Frequency returns the rate in Hz at which the driver reports positions.
func (e *RotaryEncoder) Frequency() (float64, error) {
	d, err := e.Period()
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, ErrZeroPeriod
	}
	hz := nsPerSecond / float64(d.Nanoseconds())
	e.logger.Debug("get frequency", "hz", hz, "period_ns", d.Nanoseconds())
	return hz, nil
}

// SetFrequency sets the reporting rate in Hz. The period written is
// 1e9/hz nanoseconds rounded to the nearest integer.
func (e *RotaryEncoder) SetFrequency(hz float64) error {
	ns, err := PeriodForFrequency(hz)
	if err != nil {
		return err
	}
	if err := e.node.SetInt(AttrPeriod, ns); err != nil {
		return err
	}
	e.logger.Debug("set frequency", "hz", hz, "period_ns", ns)
	return nil
}

// PeriodForFrequency converts hz to a period in whole nanoseconds.
func PeriodForFrequency(hz float64) (int64, error) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return 0, fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidArgument, hz)
	}
	ns := math.Round(nsPerSecond / hz)
	if ns < 1 {
		return 0, fmt.Errorf("%w: frequency %v Hz is above 1 GHz resolution", ErrInvalidArgument, hz)
	}
	if ns >= 1<<63 {
		return 0, fmt.Errorf("%w: frequency %v Hz gives a period beyond int64 nanoseconds", ErrInvalidArgument, hz)
	}
	return int64(ns), nil
}

// State reads every attribute. The reads are not atomic with respect to the
// hardware.
func (e *RotaryEncoder) State() (State, error) {
	var s State
	var err error
	if s.Enabled, err = e.Enabled(); err != nil {
		return s, err
	}
	if s.Mode, err = e.Mode(); err != nil {
		return s, err
	}
	if s.Position, err = e.Position(); err != nil {
		return s, err
	}
	if s.Period, err = e.Period(); err != nil {
		return s, err
	}
	if s.Period > 0 {
		s.Frequency = nsPerSecond / float64(s.Period.Nanoseconds())
	}
	return s, nil
}
