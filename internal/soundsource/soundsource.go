// Package soundsource implements the realtime capture callback over
// github.com/gen2brain/malgo, grounded on the teacher's
// internal/audio.Capturer. Unlike the teacher, which buffered callback
// data through a second internal ring buffer and consumer goroutine,
// this implementation hands samples directly to the processor's
// OnProcess in the malgo callback: the triggered writer's own ringbuffer
// is the realtime/non-realtime boundary, so a second one here would only
// add latency and an extra place to drop data.
package soundsource

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Processor is the realtime sink a Source delivers samples to. It must
// never block, allocate beyond a pooled scratch buffer, or perform I/O.
type Processor interface {
	OnProcess(samples []float32, frameTimeStart uint64)
}

// TriggerSink receives the secondary capture channel, grounding
// spec.md's "trigger audio channel" switch source (spec.md §9) as a
// second channel on the same capture device rather than a wholly
// separate device. When non-nil, Start opens the device in stereo and
// demultiplexes channel 1 to this sink on every callback; channel 0
// still goes to the Processor. Implementations must not block or
// allocate on the hot path.
type TriggerSink interface {
	Push(samples []float32)
}

// Source captures mono (or, with a TriggerSink, stereo) float32 audio
// from the default input device and forwards every callback's primary
// channel to a Processor and, if configured, its secondary channel to a
// TriggerSink.
type Source struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	sampleRate uint32
	deviceName string
	processor  Processor
	trigger    TriggerSink

	frames atomic.Uint64
}

// New allocates a malgo context. Call Start to open the device and begin
// capture. trigger may be nil, in which case the device is opened mono
// and no secondary channel is demultiplexed. deviceName is stored but not
// used: Start always opens the system default capture device.
func New(sampleRate int, deviceName string, processor Processor, trigger TriggerSink) (*Source, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("soundsource: init context: %w", err)
	}
	return &Source{
		ctx:        ctx,
		sampleRate: uint32(sampleRate),
		deviceName: deviceName,
		processor:  processor,
		trigger:    trigger,
	}, nil
}

// Start opens the capture device at the configured sample rate and
// begins delivering callbacks to the processor (and trigger sink, if
// configured). Per the "no resampling on the hot path" non-goal, a
// device that cannot provide the requested rate natively is a startup
// failure, not a resampling opportunity.
func (s *Source) Start() error {
	channels := uint32(1)
	if s.trigger != nil {
		channels = 2
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = channels
	deviceConfig.SampleRate = s.sampleRate
	deviceConfig.PeriodSizeInMilliseconds = 10

	onRecvFrames := func(_, pInputSamples []byte, _ uint32) {
		interleaved := bytesToFloat32(pInputSamples)

		if s.trigger == nil {
			n := uint64(len(interleaved))
			start := s.frames.Add(n) - n
			s.processor.OnProcess(interleaved, start)
			returnFloat32Buffer(interleaved)
			return
		}

		primary, secondary := deinterleaveStereo(interleaved)
		n := uint64(len(primary))
		start := s.frames.Add(n) - n
		s.processor.OnProcess(primary, start)
		s.trigger.Push(secondary)

		returnFloat32Buffer(interleaved)
		primaryPool.put(primary)
		secondaryPool.put(secondary)
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("soundsource: init device: %w", err)
	}
	if device.SampleRate() != s.sampleRate {
		device.Uninit()
		return fmt.Errorf("soundsource: device sample rate %d does not match configured rate %d; resampling is not supported on the capture path", device.SampleRate(), s.sampleRate)
	}

	s.device = device
	if err := device.Start(); err != nil {
		return fmt.Errorf("soundsource: start device: %w", err)
	}
	return nil
}

// Close stops the device and releases all audio resources.
func (s *Source) Close() {
	if s.device != nil {
		s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
}

// floatBufPool is a sync.Pool of scratch float32 slices, letting the
// hot path reuse buffers across callbacks instead of allocating.
type floatBufPool struct {
	pool sync.Pool
}

func newFloatBufPool() *floatBufPool {
	return &floatBufPool{pool: sync.Pool{
		New: func() interface{} {
			buf := make([]float32, 2048)
			return &buf
		},
	}}
}

func (p *floatBufPool) get(n int) []float32 {
	pBuf := p.pool.Get().(*[]float32)
	if cap(*pBuf) < n {
		*pBuf = make([]float32, n)
	}
	return (*pBuf)[:n]
}

func (p *floatBufPool) put(buf []float32) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	p.pool.Put(&full)
}

var (
	float32Pool   = newFloatBufPool()
	primaryPool   = newFloatBufPool()
	secondaryPool = newFloatBufPool()
)

// bytesToFloat32 converts raw little-endian float32 bytes from a pooled
// scratch buffer. The caller must return the slice with
// returnFloat32Buffer once it is done reading it.
func bytesToFloat32(data []byte) []float32 {
	numSamples := len(data) / 4
	samples := float32Pool.get(numSamples)

	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

func returnFloat32Buffer(samples []float32) {
	float32Pool.put(samples)
}

// deinterleaveStereo splits an interleaved [ch0, ch1, ch0, ch1, ...]
// buffer into separate per-channel buffers pulled from dedicated pools.
// Callers must return both with primaryPool.put/secondaryPool.put.
func deinterleaveStereo(interleaved []float32) (primary, secondary []float32) {
	frameCount := len(interleaved) / 2
	primary = primaryPool.get(frameCount)
	secondary = secondaryPool.get(frameCount)
	for i := 0; i < frameCount; i++ {
		primary[i] = interleaved[2*i]
		secondary[i] = interleaved[2*i+1]
	}
	return primary, secondary
}
