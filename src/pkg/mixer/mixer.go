// Package mixer plays samples on a fixed set of channels plus one music
// track, in the manner of SDL_mixer, on top of beep.
package mixer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
)

const (
	MaxVolume          = 128
	DefaultFrequency   = 44100
	DefaultChunkSize   = 4096
	DefaultMixChannels = 8
)

var (
	ErrNotOpen        = errors.New("audio device not open")
	ErrAlreadyOpen    = errors.New("audio device already open")
	ErrNoFreeChannels = errors.New("no free channels available")
	ErrBadChannel     = errors.New("invalid channel")
	ErrDeleted        = errors.New("sound has been deleted")
)

// Kind selects how a file is loaded.
type Kind int

const (
	// Sample is decoded into memory and can play on any channel.
	Sample Kind = iota
	// Music is streamed from disk on the single music track.
	Music
)

func (k Kind) String() string {
	if k == Music {
		return "music"
	}
	return "sample"
}

// ParseKind accepts "sample" and "music".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "sample":
		return Sample, nil
	case "music":
		return Music, nil
	}
	return Sample, fmt.Errorf("bad type %q: must be sample or music", s)
}

type Options struct {
	Frequency   int
	Channels    int // output channels, 1 or 2
	ChunkSize   int // frames per output buffer
	MixChannels int
}

type channel struct {
	ctrl     *beep.Ctrl
	soundVol *effects.Volume
	chanVol  *effects.Volume
	sound    *Sound
	done     *atomic.Bool
	level    int
}

func (c *channel) active() bool {
	return c.ctrl != nil && c.ctrl.Streamer != nil && !c.done.Load()
}

func (c *channel) halt() {
	if c.ctrl != nil {
		c.ctrl.Streamer = nil
	}
	c.ctrl = nil
	c.sound = nil
	c.soundVol = nil
	c.chanVol = nil
}

// Mixer owns the output device and the channel table. Methods are meant
// to be called from one goroutine; the output goroutine only reads
// streamers under the output lock.
type Mixer struct {
	out      Output
	logger   *slog.Logger
	rate     beep.SampleRate
	root     *beep.Mixer
	channels []*channel
	music    *channel
	open     bool
}

func New(out Output, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mixer{out: out, logger: logger}
}

// Open starts the output with the given options; zero fields take defaults.
func (m *Mixer) Open(opts Options) error {
	if m.open {
		return ErrAlreadyOpen
	}
	if opts.Frequency <= 0 {
		opts.Frequency = DefaultFrequency
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MixChannels <= 0 {
		opts.MixChannels = DefaultMixChannels
	}
	if opts.Channels != 0 && opts.Channels != 1 && opts.Channels != 2 {
		return fmt.Errorf("unsupported channel count %d", opts.Channels)
	}

	m.rate = beep.SampleRate(opts.Frequency)
	if err := m.out.Init(m.rate, opts.ChunkSize); err != nil {
		return err
	}
	m.root = &beep.Mixer{}
	m.channels = make([]*channel, opts.MixChannels)
	for i := range m.channels {
		m.channels[i] = &channel{level: MaxVolume, done: new(atomic.Bool)}
	}
	m.music = &channel{level: MaxVolume, done: new(atomic.Bool)}
	m.out.Play(m.root)
	m.open = true
	m.logger.Debug("audio open", "frequency", opts.Frequency, "chunk", opts.ChunkSize, "channels", opts.MixChannels)
	return nil
}

func (m *Mixer) IsOpen() bool { return m.open }

// Channels returns the number of sample channels.
func (m *Mixer) Channels() int { return len(m.channels) }

// Close halts everything and releases the output.
func (m *Mixer) Close() {
	if !m.open {
		return
	}
	m.out.Lock()
	for _, c := range m.channels {
		c.halt()
	}
	m.music.halt()
	m.root.Clear()
	m.out.Unlock()
	m.out.Close()
	m.open = false
}

// Load decodes a WAV file.
func (m *Mixer) Load(path string, kind Kind) (*Sound, error) {
	if !m.open {
		return nil, ErrNotOpen
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	s := &Sound{mixer: m, kind: kind, format: format, volume: MaxVolume, channel: -1}
	if kind == Music {
		s.stream = stream
		return s, nil
	}
	s.buffer = beep.NewBuffer(format)
	s.buffer.Append(stream)
	stream.Close()
	return s, nil
}

// Volume sets the volume of a sample channel, or of every channel when
// ch is -1, and returns the previous value (the average for -1). A
// negative level only queries.
func (m *Mixer) Volume(ch, level int) (int, error) {
	if !m.open {
		return 0, ErrNotOpen
	}
	if ch < -1 || ch >= len(m.channels) {
		return 0, fmt.Errorf("%w: %d", ErrBadChannel, ch)
	}
	targets := m.channels
	if ch >= 0 {
		targets = m.channels[ch : ch+1]
	}
	prev := 0
	for _, c := range targets {
		prev += c.level
	}
	prev /= len(targets)
	if level < 0 {
		return prev, nil
	}
	level = clampVolume(level)
	m.out.Lock()
	for _, c := range targets {
		c.level = level
		setLevel(c.chanVol, level)
	}
	m.out.Unlock()
	return prev, nil
}

// MusicVolume sets the music track volume and returns the previous one.
func (m *Mixer) MusicVolume(level int) (int, error) {
	if !m.open {
		return 0, ErrNotOpen
	}
	prev := m.music.level
	if level < 0 {
		return prev, nil
	}
	level = clampVolume(level)
	m.out.Lock()
	m.music.level = level
	setLevel(m.music.chanVol, level)
	m.out.Unlock()
	return prev, nil
}

func (m *Mixer) pick(ch int) (int, error) {
	if ch >= len(m.channels) || ch < -1 {
		return 0, fmt.Errorf("%w: %d", ErrBadChannel, ch)
	}
	if ch >= 0 {
		return ch, nil
	}
	for i, c := range m.channels {
		if !c.active() {
			return i, nil
		}
	}
	return 0, ErrNoFreeChannels
}

// start installs streamer on c. Callers hold the output lock.
func (m *Mixer) start(c *channel, s *Sound, streamer beep.Streamer) {
	c.halt()
	if s.format.SampleRate != m.rate {
		streamer = beep.Resample(4, s.format.SampleRate, m.rate, streamer)
	}
	c.soundVol = &effects.Volume{Streamer: streamer, Base: 2}
	setLevel(c.soundVol, s.volume)
	c.chanVol = &effects.Volume{Streamer: c.soundVol, Base: 2}
	setLevel(c.chanVol, c.level)

	done := new(atomic.Bool)
	c.done = done
	c.sound = s
	c.ctrl = &beep.Ctrl{Streamer: beep.Seq(c.chanVol, beep.Callback(func() { done.Store(true) }))}
	m.root.Add(c.ctrl)
}

func clampVolume(v int) int {
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

func setLevel(v *effects.Volume, level int) {
	if v == nil {
		return
	}
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(float64(level) / MaxVolume)
}
