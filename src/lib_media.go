package pawmedia

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/phroun/pawmedia/src/pkg/mixer"
	"github.com/phroun/pawmedia/src/pkg/video"
)

// Version is reported by media::version
const Version = "1.2.0"

// mediaLibrary holds everything the media:: commands share
type mediaLibrary struct {
	ps       *PawMedia
	queue    *video.Queue
	backend  video.Backend
	display  *video.Display
	bridge   *EventBridge
	surfaces map[string]*surfaceCmd
	nextSurf int

	audioOut  mixer.Output
	mixer     *mixer.Mixer
	sounds    map[string]*mixer.Sound
	nextSound int
}

// RegisterMediaLibrary installs the media:: commands, the default
// media::on_event macro and the event bridge as an event source.
func (ps *PawMedia) RegisterMediaLibrary() error {
	if ps.media != nil {
		return nil
	}
	video.SetLogger(ps.logger.Slog(CatVideo))

	queue := video.NewQueue(ps.config.EventQueueSize)
	queue.SetNotify(ps.loop.Wake)
	backend, err := ps.newBackend(queue)
	if err != nil {
		return err
	}

	m := &mediaLibrary{
		ps:       ps,
		queue:    queue,
		backend:  backend,
		display:  video.NewDisplay(backend),
		bridge:   NewEventBridge(queue, ps, ps.logger, ps.config.PollInterval),
		surfaces: make(map[string]*surfaceCmd),
		sounds:   make(map[string]*mixer.Sound),
	}
	ps.media = m
	m.bridge.SetKeepAlive(func() bool { return m.display.Surface() != nil })
	ps.loop.AddSource(m.bridge)

	ps.RegisterCommands(map[string]Handler{
		"media::surface":   m.cmdSurface,
		"media::event":     m.cmdEvent,
		"media::warp":      m.cmdWarp,
		"media::version":   m.cmdVersion,
		"media::videoinfo": m.cmdVideoInfo,
		"media::mixer":     m.cmdMixer,
	})
	if !ps.HasMacro(EventHandlerName) {
		ps.DefineMacro(EventHandlerName, "")
	}
	ps.logger.DebugCat(CatSystem, "media library registered")
	return nil
}

// Queue returns the native event queue, or nil before RegisterMediaLibrary.
func (ps *PawMedia) Queue() *video.Queue {
	if ps.media == nil {
		return nil
	}
	return ps.media.queue
}

// EventBridge returns the bridge, or nil before RegisterMediaLibrary.
func (ps *PawMedia) EventBridge() *EventBridge {
	if ps.media == nil {
		return nil
	}
	return ps.media.bridge
}

// Display returns the display, or nil before RegisterMediaLibrary.
func (ps *PawMedia) Display() *video.Display {
	if ps.media == nil {
		return nil
	}
	return ps.media.display
}

// Surface returns the surface behind a surface command.
func (ps *PawMedia) Surface(name string) (*video.Surface, bool) {
	if ps.media == nil {
		return nil, false
	}
	sc, ok := ps.media.surfaces[name]
	if !ok {
		return nil, false
	}
	return sc.surface, true
}

func (ps *PawMedia) newBackend(queue *video.Queue) (video.Backend, error) {
	backend := ps.config.Backend
	if backend == "" || backend == "auto" {
		backend = "headless"
		if ps.config.Screen != nil || term.IsTerminal(int(os.Stdout.Fd())) {
			backend = "tcell"
		}
	}
	switch backend {
	case "headless":
		return video.NewHeadlessBackend(queue), nil
	case "tcell":
		screen := ps.config.Screen
		if screen == nil {
			s, err := tcell.NewScreen()
			if err != nil {
				return nil, fmt.Errorf("terminal backend: %w", err)
			}
			screen = s
		}
		return video.NewTcellBackend(screen, queue), nil
	}
	return nil, fmt.Errorf("unknown video backend \"%s\"", backend)
}

func (m *mediaLibrary) close() error {
	var errs []error
	names := make([]string, 0, len(m.surfaces))
	for name := range m.surfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.ps.executor.UnregisterCommand(name)
	}
	m.surfaces = map[string]*surfaceCmd{}
	m.closeMixer()

	m.ps.loop.RemoveSource(m.bridge)
	m.bridge.Close()
	if err := m.display.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// cmdEvent: media::event ?a? ?b? queues a User event for media::on_event
func (m *mediaLibrary) cmdEvent(ctx *Context) Result {
	if len(ctx.Args) > 2 {
		return ctx.WrongArgs("?value? ?value?")
	}
	var a, b *Value
	if len(ctx.Args) > 0 {
		a = ctx.Args[0]
	}
	if len(ctx.Args) > 1 {
		b = ctx.Args[1]
	}
	if err := m.bridge.PushUserEvent(a, b); err != nil {
		return ctx.Error(err)
	}
	return BoolStatus(true)
}

// cmdWarp: media::warp x y
func (m *mediaLibrary) cmdWarp(ctx *Context) Result {
	if len(ctx.Args) != 2 {
		return ctx.WrongArgs("x y")
	}
	x, err := ctx.Args[0].Int()
	if err != nil {
		return ctx.Error(err)
	}
	y, err := ctx.Args[1].Int()
	if err != nil {
		return ctx.Error(err)
	}
	if m.display.Surface() == nil {
		return ctx.Error(video.ErrNoVideoMode)
	}
	m.display.Warp(int(x), int(y))
	return BoolStatus(true)
}

func (m *mediaLibrary) cmdVersion(ctx *Context) Result {
	if len(ctx.Args) != 0 {
		return ctx.WrongArgs("")
	}
	ctx.SetResultString(Version)
	return BoolStatus(true)
}

// cmdVideoInfo returns a key/value list describing the backend
func (m *mediaLibrary) cmdVideoInfo(ctx *Context) Result {
	if len(ctx.Args) != 0 {
		return ctx.WrongArgs("")
	}
	info := m.display.Info()
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	ctx.SetResult(NewStringList(
		"hw_available", b(info.HWAvailable),
		"wm_available", b(info.WMAvailable),
		"blit_hw", b(info.BlitHW),
		"blit_sw", b(info.BlitSW),
		"video_mem", fmt.Sprint(info.VideoMem),
	))
	return BoolStatus(true)
}
