// Package quota loads the time-of-day quota intervals that bound
// switch-initiated playback, grounded on
// original_source/capture/quotas.hh/.cc.
package quota

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Interval is a time-of-day window, expressed as seconds since local
// midnight, with a cap on the number of switch-initiated events it
// admits.
type Interval struct {
	StartSec int
	EndSec   int
	Quota    int
}

// Contains reports whether nowSec falls strictly inside the interval.
// Boundary times do not match: start < now < end.
func (iv Interval) Contains(nowSec int) bool {
	return nowSec > iv.StartSec && nowSec < iv.EndSec
}

// BadLine is a non-fatal parse error for one line of a quota file: the
// loader records it and continues, and the caller logs it, per spec's
// BadQuotaLine handling.
type BadLine struct {
	LineNo int
	Text   string
}

func (e *BadLine) Error() string {
	return fmt.Sprintf("quota: could not parse line %d: %q", e.LineNo, e.Text)
}

// LoadFromFile reads a quota file: lines of "HH:MM HH:MM N", "#"-prefixed
// comments and blank lines ignored. It returns the parsed intervals in
// file order along with every BadLine it skipped, so the caller can log
// them without aborting the load.
func LoadFromFile(path string) ([]Interval, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses quota intervals from r, applying the same format and
// error-tolerance rules as LoadFromFile.
func Load(r io.Reader) ([]Interval, []error, error) {
	var intervals []Interval
	var bad []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		iv, err := parseLine(trimmed)
		if err != nil {
			bad = append(bad, &BadLine{LineNo: lineNo, Text: line})
			continue
		}
		intervals = append(intervals, iv)
	}
	if err := scanner.Err(); err != nil {
		return intervals, bad, err
	}
	return intervals, bad, nil
}

func parseLine(line string) (Interval, error) {
	var startH, startM, endH, endM, count int
	n, err := fmt.Sscanf(line, "%d:%d %d:%d %d", &startH, &startM, &endH, &endM, &count)
	if err != nil || n != 5 {
		return Interval{}, fmt.Errorf("quota: expected \"HH:MM HH:MM N\", got %q", line)
	}
	return Interval{
		StartSec: startH*3600 + startM*60,
		EndSec:   endH*3600 + endM*60,
		Quota:    count,
	}, nil
}
