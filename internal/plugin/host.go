package plugin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/commons/internal/command"
	"github.com/danmuck/commons/internal/config"
	"github.com/danmuck/commons/internal/database"
	"github.com/danmuck/commons/internal/localization"
	"github.com/danmuck/commons/internal/observability"
	"github.com/rs/zerolog"
)

var (
	ErrNoModules              = errors.New("plugin: no modules to enable")
	ErrAlreadyEnabled         = errors.New("plugin: already enabled")
	ErrDatabaseDisabled       = errors.New("plugin: database disabled")
	ErrDatabaseNotInitialized = errors.New("plugin: database not initialized")
	ErrActionPanicked         = errors.New("plugin: command action panicked")
)

// Module contributes commands and lifecycle hooks to a Host.
type Module interface {
	Name() string
	Startup(h *Host) error
	Shutdown(h *Host) error
}

// Options configures a Host.
type Options struct {
	Name            string
	Language        string
	Catalog         *localization.Catalog
	Logger          zerolog.Logger
	Metrics         *observability.Metrics
	Config          *config.Manager
	DatabaseEnabled bool
	Database        *database.Manager
	CommandRate     float64
	CommandBurst    int
}

// Host owns the command engine of one plugin.
type Host struct {
	name     string
	loc      *localization.Localizer
	log      zerolog.Logger
	metrics  *observability.Metrics
	cfg      *config.Manager
	throttle *throttle

	// life serializes Enable and Disable; module hooks run under it, so
	// they may call back into the host.
	life    sync.Mutex
	modules []Module

	mu         sync.RWMutex
	registry   *command.Registry
	dispatcher *command.Dispatcher
	staging    *command.Registry
	dbEnabled  bool
	db         *database.Manager
	enabled    bool
}

// New builds a Host. A blank name defaults to "Commons".
func New(opts Options) *Host {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Commons"
	}
	logger := opts.Logger.With().Str("plugin", name).Logger()
	h := &Host{
		name:      name,
		loc:       localization.NewLocalizer(opts.Catalog, opts.Language),
		log:       logger,
		metrics:   opts.Metrics,
		cfg:       opts.Config,
		throttle:  newThrottle(opts.CommandRate, opts.CommandBurst),
		dbEnabled: opts.DatabaseEnabled,
		db:        opts.Database,
	}
	h.installRegistry(command.NewRegistry(logger))
	return h
}

// installRegistry makes registry the live command table.
func (h *Host) installRegistry(registry *command.Registry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry = registry
	h.dispatcher = command.NewDispatcher(registry, h.log)
}

func (h *Host) Name() string                       { return h.name }
func (h *Host) Localizer() *localization.Localizer { return h.loc }
func (h *Host) Logger() zerolog.Logger             { return h.log }
func (h *Host) Config() *config.Manager            { return h.cfg }
func (h *Host) Metrics() *observability.Metrics    { return h.metrics }

// Registry returns the live command table.
func (h *Host) Registry() *command.Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry
}

// Dispatcher returns the resolver over the live command table.
func (h *Host) Dispatcher() *command.Dispatcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatcher
}

// registerTarget is the staging table while Enable runs, else the live one.
func (h *Host) registerTarget() *command.Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.staging != nil {
		return h.staging
	}
	return h.registry
}

// Register builds a definition from spec and adds it to the registry. Any
// rejection is logged as CMD_REG_ERR and reported as false. Commands
// registered from Module.Startup only go live once Enable succeeds.
func (h *Host) Register(spec command.Spec) bool {
	def, err := command.NewDefinition(spec)
	if err == nil {
		err = h.registerTarget().Add(def)
	}
	if err != nil {
		h.log.Warn().
			Err(err).
			Str("command", spec.Name).
			Msg(h.loc.Format(localization.CodeCommandRegisterError, spec.Name))
		return false
	}
	h.log.Debug().Str("command", def.Name()).Stringer("kind", def.Kind()).Msg("command registered")
	return true
}

// Enable starts modules in order. Their commands go into a staging table
// that replaces the live one, sealed, only when every startup succeeds. If a
// startup fails, modules already started are shut down in reverse order and
// the staged commands are dropped.
func (h *Host) Enable(modules ...Module) error {
	h.life.Lock()
	defer h.life.Unlock()
	if h.Enabled() {
		return ErrAlreadyEnabled
	}
	if len(modules) == 0 {
		h.log.Error().Msg(h.loc.Get(localization.CodeNotImplemented))
		return ErrNoModules
	}

	staging := command.NewRegistry(h.log)
	for _, def := range h.Registry().All() {
		_ = staging.Add(def)
	}
	h.mu.Lock()
	h.staging = staging
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.staging = nil
		h.mu.Unlock()
	}()

	started := make([]Module, 0, len(modules))
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m.Startup(h); err != nil {
			h.log.Error().Err(err).Str("module", m.Name()).Msg("module startup failed")
			for i := len(started) - 1; i >= 0; i-- {
				if serr := started[i].Shutdown(h); serr != nil {
					h.log.Warn().Err(serr).Str("module", started[i].Name()).Msg("module shutdown failed")
				}
			}
			return fmt.Errorf("start module %s: %w", m.Name(), err)
		}
		h.log.Info().Str("module", m.Name()).Msg("module started")
		started = append(started, m)
	}
	if len(started) == 0 {
		h.log.Error().Msg(h.loc.Get(localization.CodeNotImplemented))
		return ErrNoModules
	}

	h.modules = started
	staging.Seal()
	h.installRegistry(staging)
	h.mu.Lock()
	h.enabled = true
	h.mu.Unlock()
	h.log.Info().Int("commands", staging.Len()).Msg("plugin enabled")
	return nil
}

// Disable stops command handling, shuts modules down in reverse start order
// and clears the command table. Every shutdown error is reported.
func (h *Host) Disable() error {
	h.life.Lock()
	defer h.life.Unlock()
	if !h.Enabled() {
		return nil
	}
	h.mu.Lock()
	h.enabled = false
	h.mu.Unlock()

	var errs []error
	for i := len(h.modules) - 1; i >= 0; i-- {
		m := h.modules[i]
		if err := m.Shutdown(h); err != nil {
			h.log.Warn().Err(err).Str("module", m.Name()).Msg("module shutdown failed")
			errs = append(errs, fmt.Errorf("stop module %s: %w", m.Name(), err))
			continue
		}
		h.log.Info().Str("module", m.Name()).Msg("module stopped")
	}
	h.modules = nil
	h.installRegistry(command.NewRegistry(h.log))
	h.log.Info().Msg("plugin disabled")
	return errors.Join(errs...)
}

// Enabled reports whether Enable completed.
func (h *Host) Enabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enabled
}

// AttachDatabase installs the manager used by Database. It also marks the
// database as enabled.
func (h *Host) AttachDatabase(db *database.Manager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dbEnabled = true
	h.db = db
}

// DatabaseEnabled reports whether the plugin is configured to use a database.
func (h *Host) DatabaseEnabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dbEnabled
}

// Database returns the database manager. It fails with ErrDatabaseDisabled
// when the plugin does not use a database and ErrDatabaseNotInitialized when
// it does but none was attached.
func (h *Host) Database() (*database.Manager, error) {
	h.mu.RLock()
	enabled, db := h.dbEnabled, h.db
	h.mu.RUnlock()
	if !enabled {
		h.log.Error().Msg(h.loc.Get(localization.CodeDatabaseOffError))
		return nil, ErrDatabaseDisabled
	}
	if db == nil {
		h.log.Error().Msg(h.loc.Get(localization.CodeDatabaseInitError))
		return nil, ErrDatabaseNotInitialized
	}
	return db, nil
}

