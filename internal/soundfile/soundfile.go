// Package soundfile implements writer.SoundFileWriter over
// github.com/go-audio/wav, the library the pack's closest domain sibling
// (the birdnet-go bioacoustic pipeline referenced in other_examples/)
// uses for the same job: mono 16-bit PCM WAV files, one per capture
// segment.
package soundfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer is a concrete writer.SoundFileWriter. It holds at most one open
// entry at a time, matching the triggered writer's own invariant.
type Writer struct {
	sampleRate int

	file    *os.File
	encoder *wav.Encoder
	scratch []int
}

// New builds a Writer that encodes mono PCM at sampleRate.
func New(sampleRate int) *Writer {
	return &Writer{sampleRate: sampleRate}
}

// OpenEntry creates path (and any missing parent directories) and starts
// a new WAV encoder on it.
func (w *Writer) OpenEntry(path string) error {
	if w.file != nil {
		return fmt.Errorf("soundfile: entry already open: %s", w.file.Name())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w.file = f
	w.encoder = wav.NewEncoder(f, w.sampleRate, 16, 1, 1)
	return nil
}

// Write encodes samples (range [-1, 1]) as signed 16-bit PCM and appends
// them to the currently open entry. It reports the number of frames
// actually accepted; on any encoder error it reports 0 frames written so
// the caller treats the write as fatal to the segment.
func (w *Writer) Write(samples []float32) (int, error) {
	if w.encoder == nil {
		return 0, fmt.Errorf("soundfile: no entry open")
	}

	if cap(w.scratch) < len(samples) {
		w.scratch = make([]int, len(samples))
	}
	ints := w.scratch[:len(samples)]
	for i, s := range samples {
		ints[i] = floatToPCM16(s)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := w.encoder.Write(buf); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// CloseEntry finalizes the WAV header and closes the underlying file.
// Idempotent when nothing is open.
func (w *Writer) CloseEntry() error {
	if w.encoder == nil {
		return nil
	}
	encErr := w.encoder.Close()
	closeErr := w.file.Close()
	w.encoder = nil
	w.file = nil
	if encErr != nil {
		return encErr
	}
	return closeErr
}

func floatToPCM16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
