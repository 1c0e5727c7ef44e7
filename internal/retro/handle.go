// Package retro owns a core and everything negotiated with the frontend on
// its behalf. Each libretro entry point maps to one Handle method; the cgo
// layer only translates arguments.
package retro

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/config"
	"github.com/user-none/retrobackend/internal/content"
	"github.com/user-none/retrobackend/internal/env"
	"github.com/user-none/retrobackend/internal/frame"
	"github.com/user-none/retrobackend/internal/gamedb"
	"github.com/user-none/retrobackend/internal/lifecycle"
	"github.com/user-none/retrobackend/internal/logging"
	"github.com/user-none/retrobackend/internal/savestate"
)

// regionOption is the adapter's own option overriding the detected region.
const regionOption = "region"

// Region option values
const (
	regionAuto = "Auto"
	regionNTSC = "NTSC"
	regionPAL  = "PAL"
)

// ErrNoCore is returned by every operation on a handle without a core.
var ErrNoCore = errors.New("no core registered")

// Allocator provides memory the frontend reads directly, such as save RAM.
type Allocator interface {
	Alloc(size int) []byte
	Free(buf []byte)
}

type goAllocator struct{}

func (goAllocator) Alloc(size int) []byte { return make([]byte, size) }
func (goAllocator) Free([]byte)           {}

// Handle is the single owner of a core. It is not safe for concurrent use;
// libretro calls every entry point from one thread.
type Handle struct {
	core    emucore.Core
	info    emucore.SystemInfo
	mapping []emucore.RetropadMapping

	logger  *log.Logger
	cfg     config.Config
	cfgFrom string

	neg     *env.Negotiator
	machine *lifecycle.Machine
	exec    *frame.Executor
	states  *savestate.Marshaller
	dbs     *gamedb.Cache
	alloc   Allocator

	cb      frame.Callbacks
	canDupe bool
	vars    []env.Variable

	game     *content.Content
	entry    *gamedb.Entry
	loaded   emucore.LoadedGame
	detected emucore.Region
	region   emucore.Region
	override string
	capture  *frame.Capture
	memory   map[int][]byte
	devices  map[int]uint
}

// New returns a handle for core. mapping translates retropad buttons to the
// core's button bits.
func New(core emucore.Core, mapping []emucore.RetropadMapping) *Handle {
	h := &Handle{
		core:    core,
		mapping: mapping,
		cfg:     config.Default(),
		machine: lifecycle.New(),
		dbs:     gamedb.NewCache(),
		alloc:   goAllocator{},
		devices: make(map[int]uint),
	}
	if core != nil {
		h.info = core.SystemInfo()
	}

	h.logger = logging.New(h.info.CoreName, h.cfg.Level())
	h.neg = env.NewNegotiator(h.logger)
	h.exec = frame.NewExecutor(h.logger, mapping, h.info.Players)
	h.states = savestate.New(h.logger,
		h.info.SerializationQuirks&emucore.SerializationQuirkCoreVariableSize != 0)
	h.vars = h.buildVariables()
	return h
}

// SetAllocator replaces the allocator used for memory regions.
func (h *Handle) SetAllocator(a Allocator) {
	if a != nil {
		h.alloc = a
	}
}

// SystemInfo returns the core's static description.
func (h *Handle) SystemInfo() emucore.SystemInfo {
	return h.info
}

// Variables returns the option schema registered at load.
func (h *Handle) Variables() []env.Variable {
	return slices.Clone(h.vars)
}

// Logger returns the handle's logger.
func (h *Handle) Logger() *log.Logger {
	return h.logger
}

// State returns the lifecycle state.
func (h *Handle) State() lifecycle.State {
	return h.machine.State()
}

// SetEnvironment attaches the frontend's environment handler and switches
// logging to the frontend's log interface when it has one.
func (h *Handle) SetEnvironment(handler env.Handler) {
	h.neg.SetHandler(handler)
	if fn, ok := h.neg.LogInterface(); ok {
		h.setLogger(logging.NewHost(h.info.CoreName, h.cfg.Level(), fn))
	}
	h.neg.SetSupportNoGame(false)
}

// SetCallbacks replaces the frontend's video, audio and input functions.
func (h *Handle) SetCallbacks(cb frame.Callbacks) {
	h.cb = cb
}

func (h *Handle) setLogger(logger *log.Logger) {
	h.logger = logger
	h.neg.SetLogger(logger)
	h.exec.SetLogger(logger)
	h.states.SetLogger(logger)
}

// Init loads the configuration. The system directory is asked for here as
// the environment is set by now.
func (h *Handle) Init() {
	systemDir, _ := h.neg.SystemDirectory()
	cfg, from, err := config.Load(systemDir, h.info.CoreName)
	if err != nil {
		h.logger.Warn("using default configuration", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		h.logger.Warn("invalid configuration", "source", from, "err", err)
	}
	h.cfg = cfg
	h.cfgFrom = from
	h.logger.SetLevel(cfg.Level())
	h.vars = h.buildVariables()
	h.logger.Debug("initialised", "config", from, "version", h.info.CoreVersion)
}

// Deinit unloads any content and returns the handle to its initial state.
func (h *Handle) Deinit() {
	if h.machine.HasContent() {
		_ = h.UnloadGame()
	}
	h.machine.Reset()
}

// buildVariables turns the core options plus the region override into
// frontend variables, applying configured defaults.
func (h *Handle) buildVariables() []env.Variable {
	prefix := h.info.CoreName + "_"
	vars := env.VariablesFromOptions(prefix, h.info.CoreOptions)
	if _, ok := h.info.Option(regionOption); !ok {
		vars = append(vars, env.Variable{
			Key:         prefix + regionOption,
			Option:      regionOption,
			Description: "Region",
			Values:      []string{regionAuto, regionNTSC, regionPAL},
			Default:     regionAuto,
		})
	}

	for i, v := range vars {
		value, ok := h.cfg.Options[v.Option]
		if !ok {
			continue
		}
		if nv, ok := v.WithDefault(value); ok {
			vars[i] = nv
		} else {
			h.logger.Warn("ignoring configured option default", "key", v.Option, "value", value)
		}
	}
	return vars
}

// LoadGame loads content. On failure nothing changes and the error is a
// *emucore.LoadError or a lifecycle violation.
func (h *Handle) LoadGame(game emucore.GameData) error {
	if h.core == nil {
		return ErrNoCore
	}
	err := h.machine.Load(func() error { return h.load(game) })
	if err != nil {
		h.logger.Error("load game failed", "err", err)
	}
	return err
}

func (h *Handle) load(game emucore.GameData) error {
	if game.IsEmpty() {
		return emucore.NewLoadError(emucore.LoadMissing, "no content provided")
	}

	var c *content.Content
	if !h.info.NeedFullPath {
		var err error
		c, err = content.NewLoader(h.info.Extensions, h.cfg.MaxContentSize).Load(game)
		if err != nil {
			return err
		}
		game = emucore.DataGame(c.Name, c.Data).WithMeta(game.Meta())
		h.logger.Info("content resolved", "name", c.Name, "size", len(c.Data),
			"crc32", fmt.Sprintf("%08x", c.CRC32), "archive", c.Archive)
	}

	loaded, err := h.core.LoadGame(game)
	if err != nil {
		return asLoadError(err)
	}
	if err := h.neg.ReportAVInfo(loaded.AVInfo); err != nil {
		h.core.UnloadGame()
		h.neg.EndSession()
		return emucore.NewLoadError(emucore.LoadCorrupt, "core reported %v", err)
	}

	preferred := loaded.PixelFormats
	if len(preferred) == 0 {
		preferred = []emucore.PixelFormat{emucore.PixelFormatXRGB8888, emucore.PixelFormatRGB565}
	}
	if _, err := h.neg.NegotiatePixelFormat(preferred...); err != nil {
		h.logger.Warn("pixel format negotiation", "err", err)
	}

	h.game = c
	h.loaded = loaded
	h.entry = nil
	if c != nil {
		h.identify(c)
	}
	h.detected = h.detectRegion(loaded)

	if q := h.info.SerializationQuirks; q != 0 {
		if _, ok := h.neg.SetSerializationQuirks(q); !ok {
			h.logger.Debug("frontend ignored serialization quirks", "quirks", q)
		}
	}
	h.states.SetVariableSize(h.info.SerializationQuirks&emucore.SerializationQuirkCoreVariableSize != 0)
	if lvl := h.info.PerformanceLevel; lvl != 0 && !h.neg.SetPerformanceLevel(lvl) {
		h.logger.Debug("frontend ignored performance level", "level", lvl)
	}

	if err := h.neg.RegisterVariables(h.vars); err != nil {
		h.logger.Warn("variables", "err", err)
	}
	h.neg.PollVariables()
	h.applyOptions(nil)

	if err := h.neg.SetInputDescriptors(loaded.InputDescriptors); err != nil {
		h.logger.Warn("input descriptors", "err", err)
	}
	h.canDupe = h.neg.CanDupe()

	for port, device := range h.devices {
		h.forwardDevice(port, device)
	}
	h.attachMemory()
	h.startCapture()
	h.exec.Reset()

	g := loaded.AVInfo.Geometry
	h.logger.Info("game loaded",
		"size", fmt.Sprintf("%dx%d", g.BaseWidth, g.BaseHeight),
		"fps", loaded.AVInfo.Timing.FPS,
		"format", h.neg.PixelFormat(),
		"region", h.region)
	return nil
}

// asLoadError makes sure a core's load failure carries a kind.
func asLoadError(err error) error {
	var loadErr *emucore.LoadError
	if errors.As(err, &loadErr) {
		return err
	}
	switch {
	case errors.Is(err, emucore.ErrUnsupportedContent):
		return &emucore.LoadError{Kind: emucore.LoadUnsupported, Err: err}
	case errors.Is(err, emucore.ErrNoContent):
		return &emucore.LoadError{Kind: emucore.LoadMissing, Err: err}
	default:
		return &emucore.LoadError{Kind: emucore.LoadCorrupt, Err: err}
	}
}

// identify looks the content up in the core's game database.
func (h *Handle) identify(c *content.Content) {
	if h.info.RDBName == "" {
		return
	}
	systemDir, _ := h.neg.SystemDirectory()
	e, ok, err := h.dbs.Lookup(h.cfg.RDBDir(systemDir), h.info.RDBName, c.CRC32)
	if err != nil {
		h.logger.Debug("game database unavailable", "err", err)
		return
	}
	if !ok {
		h.logger.Debug("content not in game database", "crc32", fmt.Sprintf("%08x", c.CRC32))
		return
	}
	h.entry = &e
	h.logger.Info("identified content", "name", gamedb.DisplayName(e.Name), "serial", e.Serial)
}

// detectRegion prefers the core's answer, then the game database, then the
// frame rate.
func (h *Handle) detectRegion(loaded emucore.LoadedGame) emucore.Region {
	if loaded.HasRegion {
		return loaded.Region
	}
	if h.entry != nil {
		if r, ok := gamedb.Region(h.entry.Name); ok {
			return r
		}
	}
	return emucore.RegionFromFPS(loaded.AVInfo.Timing.FPS)
}

// applyOptions hands option values to the core and re-evaluates the region
// override. Nil keys applies every option.
func (h *Handle) applyOptions(keys []string) {
	snap := h.neg.Variables()
	if keys == nil {
		for k := range snap.All() {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	}

	setter, _ := h.core.(emucore.OptionSetter)
	for _, k := range keys {
		v, _ := snap.Get(k)
		if k == regionOption {
			if _, coreOwned := h.info.Option(regionOption); !coreOwned {
				h.override = v
				continue
			}
		}
		if setter != nil {
			setter.SetOption(k, v)
		}
	}

	switch h.override {
	case regionNTSC:
		h.region = emucore.RegionNTSC
	case regionPAL:
		h.region = emucore.RegionPAL
	default:
		h.region = h.detected
	}
}

// startCapture records audio when configured. Relative paths are placed in
// the frontend's save directory.
func (h *Handle) startCapture() {
	path := h.cfg.AudioCapture
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) {
		if dir, ok := h.neg.SaveDirectory(); ok {
			path = filepath.Join(dir, path)
		}
	}
	rate := int(h.loaded.AVInfo.Timing.SampleRate)
	c, err := frame.NewCapture(path, rate)
	if err != nil {
		h.logger.Warn("audio capture disabled", "err", err)
		return
	}
	h.capture = c
	h.exec.SetCapture(c)
	h.logger.Info("capturing audio", "path", path, "rate", rate)
}

func (h *Handle) stopCapture() {
	if h.capture == nil {
		return
	}
	h.exec.SetCapture(nil)
	if err := h.capture.Close(); err != nil {
		h.logger.Warn("audio capture", "err", err)
	}
	h.capture = nil
}

// UnloadGame releases the content and ends the session. A later load starts
// from scratch and will not accept save states from this session.
func (h *Handle) UnloadGame() error {
	if err := h.machine.Fire(lifecycle.OpUnloadGame); err != nil {
		h.logger.Error("unload game", "err", err)
		return err
	}
	h.core.UnloadGame()
	h.detachMemory()
	h.stopCapture()
	h.neg.EndSession()
	h.states.Reset()
	h.logger.Debug("game unloaded", "frames", h.exec.Frames())
	h.exec.Reset()
	h.game = nil
	h.entry = nil
	h.loaded = emucore.LoadedGame{}
	h.override = ""
	return nil
}

// AVInfo returns the AV info reported at load.
func (h *Handle) AVInfo() (emucore.AVInfo, bool) {
	return h.neg.AVInfo()
}

// DefaultAVInfo is reported by retro_get_system_av_info before any content
// is loaded.
func DefaultAVInfo() emucore.AVInfo {
	return emucore.NewAVInfo(320, 240, 60, 44100)
}

// Region returns the video region of the loaded content.
func (h *Handle) Region() emucore.Region {
	return h.region
}

// Content returns the resolved content, or nil when the core loads from a
// path itself.
func (h *Handle) Content() *content.Content {
	return h.game
}

// Shutdown asks the frontend to exit.
func (h *Handle) Shutdown() {
	if !h.neg.Shutdown() {
		h.logger.Warn("frontend ignored shutdown request")
	}
}

// Message shows text on the frontend's screen.
func (h *Handle) Message(text string, frames uint) {
	if !h.neg.Message(text, frames) {
		h.logger.Info(text)
	}
}
