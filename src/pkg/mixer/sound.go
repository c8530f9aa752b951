package mixer

import (
	"github.com/gopxl/beep"
)

// Sound is a loaded sample or music file.
type Sound struct {
	mixer   *Mixer
	kind    Kind
	format  beep.Format
	buffer  *beep.Buffer
	stream  beep.StreamSeekCloser
	volume  int
	channel int
	deleted bool
}

func (s *Sound) Kind() Kind { return s.kind }

// Play starts the sound. Samples go to ch, or the first free channel when
// ch is -1; music always uses the music track. loops is the number of
// extra repetitions, -1 meaning forever. It returns the channel used (-1
// for music).
func (s *Sound) Play(ch, loops int) (int, error) {
	if s.deleted {
		return 0, ErrDeleted
	}
	m := s.mixer
	if !m.open {
		return 0, ErrNotOpen
	}

	var seeker beep.StreamSeeker
	var target *channel
	if s.kind == Music {
		if err := s.stream.Seek(0); err != nil {
			return 0, err
		}
		seeker = s.stream
		target = m.music
		ch = -1
	} else {
		idx, err := m.pick(ch)
		if err != nil {
			return 0, err
		}
		seeker = s.buffer.Streamer(0, s.buffer.Len())
		target = m.channels[idx]
		ch = idx
	}

	var streamer beep.Streamer = seeker
	switch {
	case loops < 0:
		streamer = beep.Loop(-1, seeker)
	case loops > 0:
		streamer = beep.Loop(loops+1, seeker)
	}

	m.out.Lock()
	m.start(target, s, streamer)
	m.out.Unlock()
	if s.kind == Sample {
		s.channel = ch
	}
	return ch, nil
}

// track returns the channel currently playing this sound, if any.
func (s *Sound) track() *channel {
	m := s.mixer
	if !m.open {
		return nil
	}
	if s.kind == Music {
		if m.music.sound == s {
			return m.music
		}
		return nil
	}
	if s.channel < 0 || s.channel >= len(m.channels) {
		return nil
	}
	if c := m.channels[s.channel]; c.sound == s {
		return c
	}
	return nil
}

func (s *Sound) Halt() {
	if c := s.track(); c != nil {
		s.mixer.out.Lock()
		c.halt()
		s.mixer.out.Unlock()
	}
}

func (s *Sound) Pause() {
	s.setPaused(true)
}

func (s *Sound) Resume() {
	s.setPaused(false)
}

func (s *Sound) setPaused(p bool) {
	if c := s.track(); c != nil && c.ctrl != nil {
		s.mixer.out.Lock()
		c.ctrl.Paused = p
		s.mixer.out.Unlock()
	}
}

func (s *Sound) Playing() bool {
	c := s.track()
	return c != nil && c.active()
}

func (s *Sound) Paused() bool {
	c := s.track()
	return c != nil && c.active() && c.ctrl.Paused
}

// SetVolume changes the sound's own volume, including where it is playing
// right now, and returns the previous value. A negative level only queries.
func (s *Sound) SetVolume(level int) int {
	prev := s.volume
	if level < 0 {
		return prev
	}
	s.volume = clampVolume(level)
	if c := s.track(); c != nil {
		s.mixer.out.Lock()
		setLevel(c.soundVol, s.volume)
		s.mixer.out.Unlock()
	}
	return prev
}

// Delete halts the sound and releases its file. Further calls fail.
func (s *Sound) Delete() error {
	if s.deleted {
		return nil
	}
	s.Halt()
	s.deleted = true
	s.buffer = nil
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}
