// Package switchtracker implements the optional parallel gating model
// that drives switch-initiated one-shot playback: a polled Switch, a list
// of time-of-day quota intervals, and a refractory period between
// triggers. Grounded on original_source/capture/switch_tracker.hh/.cc,
// with REDESIGN FLAG (b) applied: the source's quota loop has an
// unreachable cout after a break; this implementation omits it rather
// than guessing at its intent.
package switchtracker

import (
	"time"

	"github.com/melizalab/capturectl/internal/event"
	"github.com/melizalab/capturectl/internal/quota"
)

// Switch is the polled boolean trigger source: keypress, GPIO line, or a
// secondary audio channel. GetState is edge-triggered: it returns true
// for exactly one poll following an off->on transition.
type Switch interface {
	GetState() bool
}

// Player performs the one-shot playback a successful trigger initiates.
// IsRunning lets the tracker refuse to trigger while a previous playback
// is still in progress.
type Player interface {
	IsRunning() bool
	PlayOneShot() error
}

// Logger receives the events and informational lines a trigger attempt
// produces, per spec.md §6's Logger contract.
type Logger interface {
	Event(e event.Event)
	Infof(format string, args ...any)
}

// Tracker holds the trigger state described in spec.md §4.6.
type Tracker struct {
	sw        Switch
	player    Player
	logger    Logger
	intervals []quota.Interval
	refractory time.Duration

	outputName string
	songName   string

	triggeringInterval int // -1 means none yet
	triggeringCount    int
	endRefractory      time.Time

	now func() time.Time
}

// New builds a Tracker. outputName and songName identify the playback
// target and are carried through to Playback events.
func New(sw Switch, player Player, logger Logger, intervals []quota.Interval, refractory time.Duration, outputName, songName string) *Tracker {
	return &Tracker{
		sw:                 sw,
		player:             player,
		logger:             logger,
		intervals:          intervals,
		refractory:         refractory,
		outputName:         outputName,
		songName:           songName,
		triggeringInterval: -1,
		now:                time.Now,
	}
}

// TryTrigger implements spec.md §4.6's try_trigger algorithm: polls the
// switch, checks refractory and quota state, and if everything admits a
// trigger, starts playback and returns true.
func (t *Tracker) TryTrigger() bool {
	if !t.sw.GetState() {
		return false
	}

	now := t.now()
	nowSec := timeOfDaySeconds(now)

	if !t.endRefractory.IsZero() && now.Before(t.endRefractory) {
		t.logger.Infof("NO PLAYBACK: in switch refraction")
		return false
	}
	if t.player.IsRunning() {
		t.logger.Infof("NO PLAYBACK: previous playback still running")
		return false
	}

	idx, iv, found := findInterval(t.intervals, nowSec)
	if !found {
		t.logger.Infof("NO PLAYBACK: outside quota intervals")
		return false
	}

	if idx == t.triggeringInterval {
		if t.triggeringCount >= iv.Quota {
			t.logger.Infof("NO PLAYBACK: exceeded quota for this interval")
			return false
		}
		t.triggeringCount++
	} else {
		t.triggeringInterval = idx
		t.triggeringCount = 1
	}

	if err := t.player.PlayOneShot(); err != nil {
		t.logger.Infof("NO PLAYBACK: %v", err)
		return false
	}

	t.logger.Event(event.Event{
		Kind:     event.Playback,
		WallTime: now,
		Details:  t.outputName + ": " + t.songName,
	})
	t.endRefractory = now.Add(t.refractory)
	return true
}

func timeOfDaySeconds(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func findInterval(intervals []quota.Interval, nowSec int) (int, quota.Interval, bool) {
	for i, iv := range intervals {
		if iv.Contains(nowSec) {
			return i, iv, true
		}
	}
	return -1, quota.Interval{}, false
}
