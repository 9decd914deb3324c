package switchio

import (
	"github.com/pkg/term"
)

// KeypressSwitch treats any keypress on the controlling terminal as a
// trigger, grounded on original_source/capture/keypress_switch.cc. The
// original used select()+read() in raw/no-canonical mode from the polling
// thread directly; here a background goroutine owns the blocking read
// and feeds a buffered channel, so GetState can poll without blocking
// the writer thread.
type KeypressSwitch struct {
	tty   *term.Term
	presses chan struct{}
	closed  chan struct{}
}

// NewKeypressSwitch opens the controlling terminal in raw mode and starts
// the background reader. Call Close when done to restore terminal state.
func NewKeypressSwitch() (*KeypressSwitch, error) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return nil, err
	}

	s := &KeypressSwitch{
		tty:     tty,
		presses: make(chan struct{}, 64),
		closed:  make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *KeypressSwitch) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := s.tty.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case s.presses <- struct{}{}:
			default:
			}
		}
		select {
		case <-s.closed:
			return
		default:
		}
	}
}

// GetState drains any pending keypresses and reports whether at least
// one arrived since the last call, matching the edge-triggered contract:
// true for one poll following an off->on transition, since a held key
// under raw/non-canonical mode produces repeat reads that all collapse
// into a single drained poll.
func (s *KeypressSwitch) GetState() bool {
	select {
	case <-s.presses:
		drain(s.presses)
		return true
	default:
		return false
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Close restores the terminal to its original mode and stops the reader.
func (s *KeypressSwitch) Close() error {
	close(s.closed)
	return s.tty.Restore()
}
