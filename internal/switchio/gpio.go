package switchio

import (
	"github.com/warthog618/go-gpiocdev"
)

// GPIOSwitch polls a GPIO character-device line as the trigger source.
// Grounded on original_source/capture/nidaq_dio_switch.cc, which polled a
// National Instruments DAQ DIO line the same way; gpiocdev plays the
// equivalent role for a Linux GPIO chip.
type GPIOSwitch struct {
	line *gpiocdev.Line

	activeLow    bool
	previousHigh bool
}

// NewGPIOSwitch requests chip/offset as an input line. activeLow inverts
// the read sense, matching gpiocdev's own convention.
func NewGPIOSwitch(chip string, offset int, activeLow bool) (*GPIOSwitch, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, err
	}
	return &GPIOSwitch{line: line, activeLow: activeLow}, nil
}

// GetState polls the line and reports an off->on edge: true for exactly
// one poll following a 0->1 transition of the (sense-corrected) value.
func (s *GPIOSwitch) GetState() bool {
	v, err := s.line.Value()
	if err != nil {
		return false
	}
	high := v != 0

	trigger := high && !s.previousHigh
	s.previousHigh = high
	return trigger
}

// Close releases the requested GPIO line.
func (s *GPIOSwitch) Close() error {
	return s.line.Close()
}
