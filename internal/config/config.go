// Package config provides configuration and CLI argument parsing for
// capturectl: flags via github.com/spf13/pflag (grounded on the pack's
// doismellburning-samoyed/cmd/direwolf pflag usage) layered over a flat
// YAML config file (gopkg.in/yaml.v3), matching spec.md §6's
// "CLI overrides file" rule.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the capture engine and its collaborators
// need, covering the CLI surface enumerated in spec.md §6.
type Config struct {
	// Audio device / ringbuffer
	InputDevice string `yaml:"input_device"`
	SampleRate  int    `yaml:"sample_rate"`
	RingMs      int    `yaml:"ring_ms"`

	// Prebuffer and analysis period
	PrebufferMs    int `yaml:"prebuffer_ms"`
	AnalysisPeriodMs int `yaml:"analysis_period_ms"`

	// Open/close discriminator tuning
	OpenThreshold      float64 `yaml:"open_threshold"`
	CloseThreshold     float64 `yaml:"close_threshold"`
	OpenCrossingRate   float64 `yaml:"open_crossing_rate"`   // crossings/sec
	CloseCrossingRate  float64 `yaml:"close_crossing_rate"`  // crossings/sec
	OpenIntegrationMs  int     `yaml:"open_integration_ms"`
	CloseIntegrationMs int     `yaml:"close_integration_ms"`

	// Output
	OutputTemplate string `yaml:"output_template"`

	// Mainloop
	MainloopMs int `yaml:"mainloop_ms"`

	// Switch/quota tracker (optional)
	SwitchEnabled    bool   `yaml:"switch_enabled"`
	SwitchKind       string `yaml:"switch_kind"` // "keypress", "gpio", "channel"
	SwitchGPIOChip   string `yaml:"switch_gpio_chip"`
	SwitchGPIOLine   int    `yaml:"switch_gpio_line"`
	QuotaFile        string `yaml:"quota_file"`
	SwitchRefractorySec int `yaml:"switch_refractory_sec"`
	PlaybackOutput   string `yaml:"playback_output"`
	PlaybackSong     string `yaml:"playback_song"`

	// Ambient
	LogLevel string `yaml:"log_level"`
	ConfigFile string `yaml:"-"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		SampleRate:         44100,
		RingMs:             2000,
		PrebufferMs:        2000,
		AnalysisPeriodMs:   50,
		OpenThreshold:      0.1,
		CloseThreshold:     0.1,
		OpenCrossingRate:   10,
		CloseCrossingRate:  2,
		OpenIntegrationMs:  500,
		CloseIntegrationMs: 2000,
		OutputTemplate:     "%year%-%month%-%day%_%hour%%min%%sec%_%entry%.wav",
		MainloopMs:         5,
		SwitchRefractorySec: 30,
		LogLevel:           "info",
	}
}

// RingCapacity returns the ringbuffer capacity in samples.
func (c *Config) RingCapacity() int {
	return msToSamples(c.RingMs, c.SampleRate)
}

// PrebufferCapacity returns the prebuffer capacity in samples.
func (c *Config) PrebufferCapacity() int {
	return msToSamples(c.PrebufferMs, c.SampleRate)
}

// AnalysisPeriodSamples returns the threshold-counter period size in samples.
func (c *Config) AnalysisPeriodSamples() int {
	return msToSamples(c.AnalysisPeriodMs, c.SampleRate)
}

// OpenWindowPeriods and CloseWindowPeriods return the number of analysis
// periods the open/close integration windows span.
func (c *Config) OpenWindowPeriods() int {
	return max(1, c.OpenIntegrationMs/max(1, c.AnalysisPeriodMs))
}

func (c *Config) CloseWindowPeriods() int {
	return max(1, c.CloseIntegrationMs/max(1, c.AnalysisPeriodMs))
}

// OpenCountThresh and CloseCountThresh convert the configured crossing
// rates (per second) into the raw crossing-count thresholds the
// ThresholdCounter compares its windowed sum against.
func (c *Config) OpenCountThresh() int {
	return int(c.OpenCrossingRate * float64(c.OpenIntegrationMs) / 1000)
}

func (c *Config) CloseCountThresh() int {
	return int(c.CloseCrossingRate * float64(c.CloseIntegrationMs) / 1000)
}

// MainloopInterval returns the writer thread's flush period.
func (c *Config) MainloopInterval() time.Duration {
	return time.Duration(c.MainloopMs) * time.Millisecond
}

// SwitchRefractory returns the switch tracker's refractory period.
func (c *Config) SwitchRefractory() time.Duration {
	return time.Duration(c.SwitchRefractorySec) * time.Second
}

func msToSamples(ms, sampleRate int) int {
	return ms * sampleRate / 1000
}

// ParseFlags parses CLI flags, loads a config file if one is named
// (explicit CLI flags always win), and returns the effective Config.
func ParseFlags(args []string) (*Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("capturectl", pflag.ContinueOnError)

	configFile := fs.String("config", "", "path to a YAML config file")
	fs.StringVar(&cfg.InputDevice, "input-device", cfg.InputDevice, "capture device name (not used by the sound source, which always opens the system default device)")
	fs.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "capture sample rate in Hz")
	fs.IntVar(&cfg.RingMs, "ring-ms", cfg.RingMs, "ringbuffer capacity in milliseconds of audio")
	fs.IntVar(&cfg.PrebufferMs, "prebuffer-ms", cfg.PrebufferMs, "pre-onset context duration in milliseconds")
	fs.IntVar(&cfg.AnalysisPeriodMs, "analysis-period-ms", cfg.AnalysisPeriodMs, "threshold-counter analysis period in milliseconds")
	fs.Float64Var(&cfg.OpenThreshold, "open-threshold", cfg.OpenThreshold, "sample amplitude threshold for open-path crossings")
	fs.Float64Var(&cfg.CloseThreshold, "close-threshold", cfg.CloseThreshold, "sample amplitude threshold for close-path crossings")
	fs.Float64Var(&cfg.OpenCrossingRate, "open-crossing-rate", cfg.OpenCrossingRate, "crossings per second required to open the gate")
	fs.Float64Var(&cfg.CloseCrossingRate, "close-crossing-rate", cfg.CloseCrossingRate, "crossings per second below which the gate closes")
	fs.IntVar(&cfg.OpenIntegrationMs, "open-integration-ms", cfg.OpenIntegrationMs, "open-path integration window in milliseconds")
	fs.IntVar(&cfg.CloseIntegrationMs, "close-integration-ms", cfg.CloseIntegrationMs, "close-path integration window in milliseconds")
	fs.StringVar(&cfg.OutputTemplate, "output-template", cfg.OutputTemplate, "%var%-delimited output filename template")
	fs.IntVar(&cfg.MainloopMs, "mainloop-ms", cfg.MainloopMs, "writer thread flush period in milliseconds")
	fs.BoolVar(&cfg.SwitchEnabled, "switch-enabled", cfg.SwitchEnabled, "enable the switch/quota playback tracker")
	fs.StringVar(&cfg.SwitchKind, "switch-kind", cfg.SwitchKind, "switch implementation: keypress, gpio, or channel")
	fs.StringVar(&cfg.SwitchGPIOChip, "switch-gpio-chip", cfg.SwitchGPIOChip, "GPIO chip device for switch-kind=gpio")
	fs.IntVar(&cfg.SwitchGPIOLine, "switch-gpio-line", cfg.SwitchGPIOLine, "GPIO line offset for switch-kind=gpio")
	fs.StringVar(&cfg.QuotaFile, "quota-file", cfg.QuotaFile, "path to the time-of-day quota interval file")
	fs.IntVar(&cfg.SwitchRefractorySec, "switch-refractory-sec", cfg.SwitchRefractorySec, "minimum seconds between switch-initiated playbacks")
	fs.StringVar(&cfg.PlaybackOutput, "playback-output", cfg.PlaybackOutput, "playback output port/device name")
	fs.StringVar(&cfg.PlaybackSong, "playback-song", cfg.PlaybackSong, "path to the sound file played on a switch trigger")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := mergeFile(cfg, *configFile, fs); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// mergeFile loads the YAML file at path into a fresh Config and copies
// in any field that wasn't explicitly set on the command line, so CLI
// flags always take precedence over file values.
func mergeFile(cfg *Config, path string, fs *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	fromFile := Default()
	if err := yaml.Unmarshal(data, fromFile); err != nil {
		return fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}

	set := func(name string) bool { return fs.Changed(name) }

	if !set("input-device") {
		cfg.InputDevice = fromFile.InputDevice
	}
	if !set("sample-rate") {
		cfg.SampleRate = fromFile.SampleRate
	}
	if !set("ring-ms") {
		cfg.RingMs = fromFile.RingMs
	}
	if !set("prebuffer-ms") {
		cfg.PrebufferMs = fromFile.PrebufferMs
	}
	if !set("analysis-period-ms") {
		cfg.AnalysisPeriodMs = fromFile.AnalysisPeriodMs
	}
	if !set("open-threshold") {
		cfg.OpenThreshold = fromFile.OpenThreshold
	}
	if !set("close-threshold") {
		cfg.CloseThreshold = fromFile.CloseThreshold
	}
	if !set("open-crossing-rate") {
		cfg.OpenCrossingRate = fromFile.OpenCrossingRate
	}
	if !set("close-crossing-rate") {
		cfg.CloseCrossingRate = fromFile.CloseCrossingRate
	}
	if !set("open-integration-ms") {
		cfg.OpenIntegrationMs = fromFile.OpenIntegrationMs
	}
	if !set("close-integration-ms") {
		cfg.CloseIntegrationMs = fromFile.CloseIntegrationMs
	}
	if !set("output-template") {
		cfg.OutputTemplate = fromFile.OutputTemplate
	}
	if !set("mainloop-ms") {
		cfg.MainloopMs = fromFile.MainloopMs
	}
	if !set("switch-enabled") {
		cfg.SwitchEnabled = fromFile.SwitchEnabled
	}
	if !set("switch-kind") {
		cfg.SwitchKind = fromFile.SwitchKind
	}
	if !set("switch-gpio-chip") {
		cfg.SwitchGPIOChip = fromFile.SwitchGPIOChip
	}
	if !set("switch-gpio-line") {
		cfg.SwitchGPIOLine = fromFile.SwitchGPIOLine
	}
	if !set("quota-file") {
		cfg.QuotaFile = fromFile.QuotaFile
	}
	if !set("switch-refractory-sec") {
		cfg.SwitchRefractorySec = fromFile.SwitchRefractorySec
	}
	if !set("playback-output") {
		cfg.PlaybackOutput = fromFile.PlaybackOutput
	}
	if !set("playback-song") {
		cfg.PlaybackSong = fromFile.PlaybackSong
	}
	if !set("log-level") {
		cfg.LogLevel = fromFile.LogLevel
	}

	return nil
}
