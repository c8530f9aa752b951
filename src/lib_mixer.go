package pawmedia

import (
	"fmt"

	"github.com/phroun/pawmedia/src/pkg/mixer"
)

// AudioOutput returns the output the mixer plays to, or nil before
// media::mixer init.
func (ps *PawMedia) AudioOutput() mixer.Output {
	if ps.media == nil {
		return nil
	}
	return ps.media.audioOut
}

func (m *mediaLibrary) closeMixer() {
	for name, s := range m.sounds {
		if err := s.Delete(); err != nil {
			m.ps.logger.WarnCat(CatAudio, "%s: %v", name, err)
		}
		m.ps.executor.UnregisterCommand(name)
	}
	m.sounds = make(map[string]*mixer.Sound)
	if m.mixer != nil {
		m.mixer.Close()
		m.mixer = nil
	}
}

// cmdMixer: media::mixer init|load|volume ...
func (m *mediaLibrary) cmdMixer(ctx *Context) Result {
	if len(ctx.Args) == 0 {
		return ctx.WrongArgs("option ?arg ...?")
	}
	sub, args := ctx.Args[0].String(), ctx.Args[1:]
	switch sub {
	case "init":
		return m.mixerInit(ctx, args)
	case "load":
		return m.mixerLoad(ctx, args)
	case "volume":
		return m.mixerVolume(ctx, args)
	case "close":
		m.closeMixer()
		return BoolStatus(true)
	}
	return ctx.Errorf("bad option \"%s\": must be close, init, load, or volume", sub)
}

// intOptions parses -name value pairs into the named ints
func intOptions(args []*Value, opts map[string]*int) error {
	if len(args)%2 != 0 {
		return fmt.Errorf("missing value for option \"%s\"", args[len(args)-1])
	}
	for i := 0; i < len(args); i += 2 {
		dst, ok := opts[args[i].String()]
		if !ok {
			return fmt.Errorf("unknown option \"%s\"", args[i])
		}
		n, err := args[i+1].Int()
		if err != nil {
			return err
		}
		*dst = int(n)
	}
	return nil
}

func (m *mediaLibrary) mixerInit(ctx *Context, args []*Value) Result {
	if m.mixer != nil {
		return ctx.Error(mixer.ErrAlreadyOpen)
	}
	cfg := m.ps.config
	opts := mixer.Options{Frequency: cfg.AudioSampleRate, Channels: 2, ChunkSize: cfg.AudioBufferSize}
	if err := intOptions(args, map[string]*int{
		"-frequency": &opts.Frequency,
		"-channels":  &opts.Channels,
		"-chunksize": &opts.ChunkSize,
	}); err != nil {
		return ctx.Error(err)
	}

	var out mixer.Output = mixer.Speaker{}
	if cfg.AudioDevice == "none" {
		out = &mixer.ManualOutput{}
	}
	mx := mixer.New(out, m.ps.logger.Slog(CatAudio))
	if err := mx.Open(opts); err != nil {
		ctx.logger.CommandError(CatAudio, "media::mixer", err.Error(), ctx.Position)
		return ctx.Error(err)
	}
	m.mixer = mx
	m.audioOut = out
	return BoolStatus(true)
}

// mixerLoad: load ?-type sample|music? file
func (m *mediaLibrary) mixerLoad(ctx *Context, args []*Value) Result {
	kind := mixer.Sample
	if len(args) == 3 && args[0].String() == "-type" {
		k, err := mixer.ParseKind(args[1].String())
		if err != nil {
			return ctx.Error(err)
		}
		kind = k
		args = args[2:]
	}
	if len(args) != 1 {
		return ctx.WrongArgs("load ?-type sample|music? file")
	}
	if m.mixer == nil {
		return ctx.Error(mixer.ErrNotOpen)
	}
	s, err := m.mixer.Load(args[0].String(), kind)
	if err != nil {
		return ctx.Error(err)
	}
	name := fmt.Sprintf("mix%d", m.nextSound)
	m.nextSound++
	m.sounds[name] = s
	m.ps.RegisterCommand(name, m.soundHandler(name, s))
	ctx.logger.DebugCat(CatAudio, "loaded %s as %s (%s)", args[0], name, kind)
	ctx.SetResultString(name)
	return BoolStatus(true)
}

// mixerVolume: volume ?-channel c? ?level?. Without -channel it is the
// music volume. The previous level is returned.
func (m *mediaLibrary) mixerVolume(ctx *Context, args []*Value) Result {
	if m.mixer == nil {
		return ctx.Error(mixer.ErrNotOpen)
	}
	ch, haveChannel := -1, false
	if len(args) >= 2 && args[0].String() == "-channel" {
		n, err := args[1].Int()
		if err != nil {
			return ctx.Error(err)
		}
		ch, haveChannel = int(n), true
		args = args[2:]
	}
	if len(args) > 1 {
		return ctx.WrongArgs("volume ?-channel c? ?level?")
	}
	level := -1
	if len(args) == 1 {
		n, err := args[0].Int()
		if err != nil {
			return ctx.Error(err)
		}
		level = int(max(n, 0))
	}
	var (
		prev int
		err  error
	)
	if haveChannel {
		prev, err = m.mixer.Volume(ch, level)
	} else {
		prev, err = m.mixer.MusicVolume(level)
	}
	if err != nil {
		return ctx.Error(err)
	}
	ctx.SetResult(NewIntValue(int64(prev)))
	return BoolStatus(true)
}

func (m *mediaLibrary) soundHandler(name string, s *mixer.Sound) Handler {
	return func(ctx *Context) Result {
		if len(ctx.Args) == 0 {
			return ctx.WrongArgs("option ?arg ...?")
		}
		sub, args := ctx.Args[0].String(), ctx.Args[1:]
		switch sub {
		case "play":
			ch, loops := -1, 0
			if err := intOptions(args, map[string]*int{"-channel": &ch, "-loops": &loops}); err != nil {
				return ctx.Error(err)
			}
			used, err := s.Play(ch, loops)
			if err != nil {
				return ctx.Error(err)
			}
			ctx.SetResult(NewIntValue(int64(used)))
		case "halt":
			s.Halt()
		case "pause":
			s.Pause()
		case "resume":
			s.Resume()
		case "playing":
			ctx.SetResult(NewBoolValue(s.Playing()))
		case "paused":
			ctx.SetResult(NewBoolValue(s.Paused()))
		case "volume":
			level := -1
			if len(args) > 1 {
				return ctx.WrongArgs("volume ?level?")
			}
			if len(args) == 1 {
				n, err := args[0].Int()
				if err != nil {
					return ctx.Error(err)
				}
				level = int(max(n, 0))
			}
			ctx.SetResult(NewIntValue(int64(s.SetVolume(level))))
		case "delete":
			delete(m.sounds, name)
			m.ps.executor.UnregisterCommand(name)
			if err := s.Delete(); err != nil {
				return ctx.Error(err)
			}
		default:
			return ctx.Errorf("bad option \"%s\": must be delete, halt, pause, paused, play, playing, resume, or volume", sub)
		}
		return BoolStatus(true)
	}
}
