package eqep

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel selects one of the pin mappings of the eQEP modules.
type Channel int

// Channel identifiers. EQEP2 and EQEP2b expose the same eQEP2 module on two
// different pin pairs; only one of them can be wired at a time. Nothing here
// enforces that, the physical wiring does.
const (
	EQEP0  Channel = 0
	EQEP1  Channel = 1
	EQEP2  Channel = 2
	EQEP2b Channel = 3
)

// OCPPath is the sysfs directory holding the on-chip peripherals.
const OCPPath = "/sys/devices/platform/ocp"

// Definition describes how a channel is wired and where its driver lives.
type Definition struct {
	Channel    Channel
	Name       string
	PinA       string
	PinB       string
	DevicePath string
}

// BeagleBone Black header pins and module directories.
var definitions = [4]Definition{
	{Channel: EQEP0, Name: "eQEP0", PinA: "P9_92", PinB: "P9_27", DevicePath: OCPPath + "/48300000.epwmss/48300180.eqep"},
	{Channel: EQEP1, Name: "eQEP1", PinA: "P8_35", PinB: "P8_33", DevicePath: OCPPath + "/48302000.epwmss/48302180.eqep"},
	{Channel: EQEP2, Name: "eQEP2", PinA: "P8_12", PinB: "P8_11", DevicePath: OCPPath + "/48304000.epwmss/48304180.eqep"},
	{Channel: EQEP2b, Name: "eQEP2b", PinA: "P8_41", PinB: "P8_42", DevicePath: OCPPath + "/48304000.epwmss/48304180.eqep"},
}

// Resolve returns the definition for ch.
func Resolve(ch Channel) (Definition, error) {
	if ch < 0 || int(ch) >= len(definitions) {
		return Definition{}, fmt.Errorf("%w: %d", ErrInvalidChannel, int(ch))
	}
	return definitions[ch], nil
}

// Channels returns the definitions of every channel.
func Channels() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions[:])
	return out
}

// ParseChannel accepts a channel number ("2") or name ("eqep2b", "eQEP0").
func ParseChannel(s string) (Channel, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if _, err := Resolve(Channel(n)); err != nil {
			return 0, err
		}
		return Channel(n), nil
	}
	for _, d := range definitions {
		if strings.EqualFold(s, d.Name) {
			return d.Channel, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
}

// String returns the channel name, e.g. "eQEP2b".
func (c Channel) String() string {
	d, err := Resolve(c)
	if err != nil {
		return "eQEP(" + strconv.Itoa(int(c)) + ")"
	}
	return d.Name
}
