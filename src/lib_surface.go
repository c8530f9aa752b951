package pawmedia

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phroun/pawmedia/src/pkg/video"
)

// Default size of a surface created without -width/-height
const (
	defaultSurfaceWidth  = 800
	defaultSurfaceHeight = 600
	defaultSurfaceBpp    = 32
)

var surfaceOptions = []string{"-width", "-height", "-bpp", "-pitch", "-fullscreen", "-resizable", "-windowid"}

// surfaceCmd is the command object behind one surfN command
type surfaceCmd struct {
	name     string
	lib      *mediaLibrary
	surface  *video.Surface
	display  bool
	windowID uint32
}

type surfaceRequest struct {
	w, h, bpp int
	flags     video.Flags
	bitmap    string
	windowID  uint32
}

func (req *surfaceRequest) apply(opt string, v *Value) error {
	switch opt {
	case "-width", "-height", "-bpp":
		n, err := v.Int()
		if err != nil {
			return err
		}
		switch opt {
		case "-width":
			req.w = int(n)
		case "-height":
			req.h = int(n)
		default:
			req.bpp = int(n)
		}
	case "-fullscreen", "-resizable":
		on, err := v.Bool()
		if err != nil {
			return err
		}
		flag := video.Fullscreen
		if opt == "-resizable" {
			flag = video.Resizable
		}
		if on {
			req.flags |= flag
		} else {
			req.flags &^= flag
		}
	case "-windowid":
		n, err := v.Int()
		if err != nil {
			return err
		}
		req.windowID = uint32(n)
	case "-bitmap":
		req.bitmap = v.String()
	case "-pitch":
		return fmt.Errorf("option \"-pitch\" is read-only")
	default:
		return fmt.Errorf("unknown option \"%s\", must be one of %s", opt, strings.Join(surfaceOptions, ", "))
	}
	return nil
}

// cmdSurface: media::surface ?-option value ...?
func (m *mediaLibrary) cmdSurface(ctx *Context) Result {
	if len(ctx.Args)%2 != 0 {
		return ctx.WrongArgs("?-option value ...?")
	}
	req := surfaceRequest{w: defaultSurfaceWidth, h: defaultSurfaceHeight, bpp: defaultSurfaceBpp}
	for i := 0; i < len(ctx.Args); i += 2 {
		if err := req.apply(ctx.Args[i].String(), ctx.Args[i+1]); err != nil {
			return ctx.Error(err)
		}
	}

	sc := &surfaceCmd{lib: m, windowID: req.windowID}
	var err error
	switch {
	case req.bitmap != "":
		sc.surface, err = video.LoadBMP(req.bitmap, req.bpp)
	case m.display.Surface() == nil:
		sc.surface, err = m.display.SetMode(req.w, req.h, req.bpp, req.flags)
		sc.display = true
	default:
		sc.surface, err = video.NewSurface(req.w, req.h, req.bpp, req.flags)
	}
	if err != nil {
		ctx.logger.CommandError(CatVideo, "media::surface", err.Error(), ctx.Position)
		return ctx.Error(err)
	}

	sc.name = fmt.Sprintf("surf%d", m.nextSurf)
	m.nextSurf++
	m.surfaces[sc.name] = sc
	m.ps.RegisterCommand(sc.name, sc.handle)
	ctx.logger.DebugCat(CatVideo, "created %s %dx%dx%d display=%v", sc.name,
		sc.surface.Width(), sc.surface.Height(), sc.surface.BitsPerPixel(), sc.display)
	ctx.SetResultString(sc.name)
	return BoolStatus(true)
}

func (sc *surfaceCmd) handle(ctx *Context) Result {
	if len(ctx.Args) == 0 {
		return ctx.WrongArgs("option ?arg ...?")
	}
	sub, args := ctx.Args[0].String(), ctx.Args[1:]
	switch sub {
	case "delete":
		delete(sc.lib.surfaces, sc.name)
		sc.lib.ps.executor.UnregisterCommand(sc.name)
		return BoolStatus(true)
	case "flip":
		if err := sc.lib.display.Flip(); err != nil {
			return ctx.Error(err)
		}
		return BoolStatus(true)
	case "blit":
		return sc.blit(ctx, args)
	case "fill":
		return sc.fill(ctx, args)
	case "configure":
		return sc.configure(ctx, args)
	case "pixel":
		return sc.pixel(ctx, args)
	case "getbuffer", "getrawbuffer":
		if len(args) != 0 {
			return ctx.WrongArgs(sub)
		}
		acc, err := sc.accessor()
		if err != nil {
			return ctx.Error(err)
		}
		if sub == "getbuffer" {
			ctx.SetResult(acc.DumpRows())
		} else {
			ctx.SetResult(acc.DumpRaw())
		}
		return BoolStatus(true)
	case "setbuffer", "setrawbuffer":
		if len(args) != 1 {
			return ctx.WrongArgs(sub + " data")
		}
		acc, err := sc.accessor()
		if err != nil {
			return ctx.Error(err)
		}
		if sub == "setbuffer" {
			err = acc.LoadRows(args[0])
		} else {
			err = acc.LoadRaw(args[0].Bytes())
		}
		if err != nil {
			return ctx.Error(err)
		}
		return BoolStatus(true)
	case "mustlock":
		ctx.SetResult(NewBoolValue(sc.surface.MustLock()))
		return BoolStatus(true)
	case "setcolors":
		return sc.setColors(ctx, args)
	case "setcolorkey":
		if len(args) != 1 {
			return ctx.WrongArgs("setcolorkey rgb")
		}
		pixel, err := MapColor(args[0], sc.surface.Format())
		if err != nil {
			return ctx.Error(err)
		}
		sc.surface.SetColorKey(pixel)
		return BoolStatus(true)
	case "collide":
		return ctx.Error(errors.New("e-notimpl"))
	}
	return ctx.Errorf("bad option \"%s\": must be blit, collide, configure, delete, fill, flip, getbuffer, getrawbuffer, mustlock, pixel, setbuffer, setcolorkey, setcolors, or setrawbuffer", sub)
}

func (sc *surfaceCmd) accessor() (*PixelAccessor, error) {
	return SelectAccessor(sc.surface, sc.lib.ps.config.LegacyPixelQuirks)
}

// blit: blit dst x y ?srcrect?
func (sc *surfaceCmd) blit(ctx *Context, args []*Value) Result {
	if len(args) < 3 || len(args) > 4 {
		return ctx.WrongArgs("blit dst x y ?srcrect?")
	}
	dst, ok := sc.lib.surfaces[args[0].String()]
	if !ok {
		return ctx.Errorf("no such surface \"%s\"", args[0])
	}
	x, err := args[1].Int()
	if err != nil {
		return ctx.Error(err)
	}
	y, err := args[2].Int()
	if err != nil {
		return ctx.Error(err)
	}
	var src *Rect
	if len(args) == 4 {
		r, err := AsRect(args[3])
		if err != nil {
			return ctx.Error(err)
		}
		src = &r
	}
	if err := sc.surface.Blit(src, dst.surface, int(x), int(y)); err != nil {
		return ctx.Error(err)
	}
	return BoolStatus(true)
}

// fill: fill color ?rect?
func (sc *surfaceCmd) fill(ctx *Context, args []*Value) Result {
	if len(args) < 1 || len(args) > 2 {
		return ctx.WrongArgs("fill color ?rect?")
	}
	pixel, err := MapColor(args[0], sc.surface.Format())
	if err != nil {
		return ctx.Error(err)
	}
	var area *Rect
	if len(args) == 2 {
		r, err := AsRect(args[1])
		if err != nil {
			return ctx.Error(err)
		}
		area = &r
	}
	sc.surface.Fill(area, pixel)
	return BoolStatus(true)
}

// pixel: pixel x y ?color?
func (sc *surfaceCmd) pixel(ctx *Context, args []*Value) Result {
	if len(args) < 2 || len(args) > 3 {
		return ctx.WrongArgs("pixel x y ?color?")
	}
	x, err := args[0].Int()
	if err != nil {
		return ctx.Error(err)
	}
	y, err := args[1].Int()
	if err != nil {
		return ctx.Error(err)
	}
	acc, err := sc.accessor()
	if err != nil {
		return ctx.Error(err)
	}
	if len(args) == 3 {
		if err := acc.Set(int(x), int(y), args[2]); err != nil {
			return ctx.Error(err)
		}
		return BoolStatus(true)
	}
	v, err := acc.Get(int(x), int(y))
	if err != nil {
		return ctx.Error(err)
	}
	ctx.SetResult(v)
	return BoolStatus(true)
}

// setColors: setcolors colors firstcolor
func (sc *surfaceCmd) setColors(ctx *Context, args []*Value) Result {
	if len(args) != 2 {
		return ctx.WrongArgs("setcolors colors firstcolor")
	}
	if sc.surface.BitsPerPixel() != 8 {
		return ctx.Error(video.ErrNotPaletted)
	}
	items, err := args[0].List()
	if err != nil {
		return ctx.Error(err)
	}
	first, err := args[1].Int()
	if err != nil {
		return ctx.Error(err)
	}
	colors := make([]Color, len(items))
	for i, it := range items {
		c, n, err := colorFields(it)
		if err != nil || n != 3 {
			return ctx.Errorf("invalid color")
		}
		colors[i] = c
	}
	if err := sc.surface.SetColors(colors, int(first)); err != nil {
		return ctx.Error(err)
	}
	return BoolStatus(true)
}

func (sc *surfaceCmd) cget(opt string) (*Value, error) {
	s := sc.surface
	flag := func(f video.Flags) *Value { return NewBoolValue(s.Flags()&f != 0) }
	switch opt {
	case "-width":
		return NewIntValue(int64(s.Width())), nil
	case "-height":
		return NewIntValue(int64(s.Height())), nil
	case "-bpp":
		return NewIntValue(int64(s.BitsPerPixel())), nil
	case "-pitch":
		return NewIntValue(int64(s.Pitch())), nil
	case "-fullscreen":
		return flag(video.Fullscreen), nil
	case "-resizable":
		return flag(video.Resizable), nil
	case "-windowid":
		return NewValue(fmt.Sprintf("0x%08x", sc.windowID)), nil
	}
	return nil, fmt.Errorf("unknown option \"%s\", must be one of %s", opt, strings.Join(surfaceOptions, ", "))
}

// configure: configure ?-option? ?-option value ...?
func (sc *surfaceCmd) configure(ctx *Context, args []*Value) Result {
	switch len(args) {
	case 0:
		out := make([]*Value, 0, 2*len(surfaceOptions))
		for _, opt := range surfaceOptions {
			v, _ := sc.cget(opt)
			out = append(out, NewValue(opt), v)
		}
		ctx.SetResult(NewListValue(out...))
		return BoolStatus(true)
	case 1:
		v, err := sc.cget(args[0].String())
		if err != nil {
			return ctx.Error(err)
		}
		ctx.SetResult(v)
		return BoolStatus(true)
	}
	if len(args)%2 != 0 {
		return ctx.WrongArgs("configure ?-option value ...?")
	}

	s := sc.surface
	req := surfaceRequest{w: s.Width(), h: s.Height(), bpp: s.BitsPerPixel(), flags: s.Flags() &^ video.SrcColorKey, windowID: sc.windowID}
	for i := 0; i < len(args); i += 2 {
		opt := args[i].String()
		if opt == "-bitmap" {
			return ctx.Errorf("option \"-bitmap\" can only be given at creation")
		}
		if err := req.apply(opt, args[i+1]); err != nil {
			return ctx.Error(err)
		}
	}
	sc.windowID = req.windowID
	if req.w == s.Width() && req.h == s.Height() && req.bpp == s.BitsPerPixel() && req.flags == s.Flags()&^video.SrcColorKey {
		return BoolStatus(true)
	}

	var (
		ns  *video.Surface
		err error
	)
	if sc.display {
		ns, err = sc.lib.display.SetMode(req.w, req.h, req.bpp, req.flags)
	} else {
		ns, err = video.NewSurface(req.w, req.h, req.bpp, req.flags)
	}
	if err != nil {
		return ctx.Error(err)
	}
	sc.surface = ns
	ctx.logger.DebugCat(CatVideo, "%s reconfigured to %dx%dx%d", sc.name, req.w, req.h, req.bpp)
	return BoolStatus(true)
}
