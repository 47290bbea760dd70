package main

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/commons/internal/command"
	"github.com/danmuck/commons/internal/config"
	"github.com/danmuck/commons/internal/database"
	"github.com/danmuck/commons/internal/localization"
	"github.com/danmuck/commons/internal/plugin"
)

// Options the demo module declares in the [options] table.
var demoOptions = []config.Option{
	{Key: "options.motd", Type: config.TypeString, Default: "Welcome!"},
	{Key: "options.max_players", Type: config.TypeInt, Default: 20},
	{Key: "options.pvp", Type: config.TypeBool, Default: false},
	{Key: "options.spawn", Type: config.TypeFloatList, Default: []any{0.0, 64.0, 0.0}},
	{Key: "options.broadcast_permissions", Type: config.TypeStringList, Default: []any{}},
}

const createValues = `CREATE TABLE IF NOT EXISTS commons_values (
	owner TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (owner, key)
)`

// demoModule registers the console demo commands.
type demoModule struct {
	configPath string
	audience   *roster

	mu     sync.Mutex
	values map[string]string
	db     *database.Manager
}

func newDemoModule(configPath string, audience *roster) *demoModule {
	return &demoModule{
		configPath: configPath,
		audience:   audience,
		values:     make(map[string]string),
	}
}

func (m *demoModule) Name() string { return "demo" }

func (m *demoModule) Startup(h *plugin.Host) error {
	if cfg := h.Config(); cfg != nil {
		cfg.Initialize(demoOptions)
	}

	if h.DatabaseEnabled() {
		db, err := h.Database()
		if err != nil {
			return err
		}
		if _, err := db.Exec(context.Background(), database.NewStatement(createValues)); err != nil {
			return fmt.Errorf("prepare values table: %w", err)
		}
		m.db = db
	}

	h.Register(command.Spec{
		Name:            "reload",
		Kind:            command.MatchStatic,
		Description:     "Re-read the plugin option file.",
		ConsoleEligible: true,
		Action:          m.reload(h),
	})
	h.Register(command.Spec{
		Name:        "set",
		Kind:        command.MatchVariable,
		MinArgs:     1,
		MaxArgs:     2,
		Usage:       "set <key> [value]",
		Description: "Show or store one of your values.",
		Permission:  "commons.set",
		Action:      m.set,
	})
	h.Register(command.Spec{
		Name:            "config",
		Kind:            command.MatchDynamic,
		Patterns:        []string{"get <key>", "set <key> <value...>", "list"},
		Description:     "Inspect or change plugin options.",
		Permission:      "commons.config",
		ConsoleEligible: true,
		Action:          m.config(h),
	})
	h.Register(command.Spec{
		Name:            "broadcast",
		Aliases:         []string{"bc"},
		Kind:            command.MatchVariable,
		MinArgs:         1,
		MaxArgs:         command.Unbounded,
		Usage:           "broadcast <message...>",
		Description:     "Send a message to every permitted player.",
		Permission:      "commons.broadcast",
		ConsoleEligible: true,
		Action:          m.broadcast(h),
	})
	h.Register(command.Spec{
		Name:            "help",
		Aliases:         []string{"?"},
		Kind:            command.MatchVariable,
		MinArgs:         0,
		MaxArgs:         1,
		Usage:           "help [command]",
		Description:     "List commands or describe one.",
		ConsoleEligible: true,
		Action:          m.help(h),
	})
	return nil
}

func (m *demoModule) Shutdown(*plugin.Host) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	m.db = nil
	return nil
}

func (m *demoModule) reload(h *plugin.Host) command.Action {
	return func(_ context.Context, sender command.Sender, _ []string) bool {
		cfg := h.Config()
		if cfg == nil || !fileExists(m.configPath) {
			h.SendPlayerMessage(sender, "Nothing to reload.", true)
			return true
		}
		bad, err := cfg.Reload(m.configPath)
		if err != nil {
			h.SendPlayerMessage(sender, err.Error(), true)
			return true
		}
		h.SendPlayerMessage(sender, fmt.Sprintf("Configuration reloaded (%d invalid options).", len(bad)), true)
		return true
	}
}

func (m *demoModule) set(ctx context.Context, sender command.Sender, args []string) bool {
	key := strings.ToLower(args[0])
	if len(args) == 1 {
		v, ok, err := m.load(ctx, sender.Name(), key)
		switch {
		case err != nil:
			sender.Send("Could not read " + key + ": " + err.Error())
		case !ok:
			sender.Send(key + " is not set.")
		default:
			sender.Send(key + " = " + v)
		}
		return true
	}
	if err := m.store(ctx, sender.Name(), key, args[1]); err != nil {
		sender.Send("Could not store " + key + ": " + err.Error())
		return true
	}
	sender.Send(key + " set to " + args[1])
	return true
}

func (m *demoModule) load(ctx context.Context, owner, key string) (string, bool, error) {
	m.mu.Lock()
	db := m.db
	if db == nil {
		v, ok := m.values[owner+"/"+key]
		m.mu.Unlock()
		return v, ok, nil
	}
	m.mu.Unlock()

	stmt := database.NewStatement(db.Rebind(`SELECT value FROM commons_values WHERE owner = ? AND key = ?`), owner, key)
	type row struct {
		value string
		ok    bool
	}
	r, err := database.Query(ctx, db, stmt, func(rows *sql.Rows) (row, error) {
		var out row
		if rows.Next() {
			out.ok = true
			if err := rows.Scan(&out.value); err != nil {
				return row{}, err
			}
		}
		return out, nil
	})
	return r.value, r.ok, err
}

func (m *demoModule) store(ctx context.Context, owner, key, value string) error {
	m.mu.Lock()
	db := m.db
	if db == nil {
		m.values[owner+"/"+key] = value
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	stmt := database.NewStatement(db.Rebind(`INSERT INTO commons_values (owner, key, value) VALUES (?, ?, ?)
ON CONFLICT (owner, key) DO UPDATE SET value = excluded.value`), owner, key, value)
	_, err := db.Exec(ctx, stmt)
	return err
}

func (m *demoModule) config(h *plugin.Host) command.Action {
	return func(_ context.Context, sender command.Sender, args []string) bool {
		cfg := h.Config()
		if cfg == nil {
			h.SendPlayerMessage(sender, "No option table is loaded.", true)
			return true
		}
		switch strings.ToLower(args[0]) {
		case "list":
			for _, key := range cfg.Keys() {
				v, _ := cfg.Describe(key)
				sender.Send(key + " = " + v)
			}
		case "get":
			v, ok := cfg.Describe(args[1])
			if !ok {
				h.SendPlayerMessage(sender, h.Localizer().Format(localization.CodeBadConfigSetting, args[1]), true)
				return true
			}
			sender.Send(args[1] + " = " + v)
		case "set":
			value := strings.Join(args[2:], " ")
			if err := cfg.SetString(args[1], value); err != nil {
				h.SendPlayerMessage(sender, err.Error(), true)
				return true
			}
			v, _ := cfg.Describe(args[1])
			sender.Send(args[1] + " = " + v)
		}
		return true
	}
}

func (m *demoModule) broadcast(h *plugin.Host) command.Action {
	return func(_ context.Context, _ command.Sender, args []string) bool {
		var perms []string
		if cfg := h.Config(); cfg != nil {
			perms, _ = cfg.GetStringList("options.broadcast_permissions")
		}
		h.Broadcast(m.audience, plugin.Broadcast{
			Message:     strings.Join(args, " "),
			Permissions: perms,
			UseName:     true,
		})
		return true
	}
}

func (m *demoModule) help(h *plugin.Host) command.Action {
	return func(_ context.Context, sender command.Sender, args []string) bool {
		if len(args) == 1 {
			def, ok := h.Registry().Lookup(args[0])
			if !ok {
				h.SendPlayerMessage(sender, h.Localizer().Get(localization.CodeNoCommand), true)
				return true
			}
			sender.Send(h.Localizer().Format(localization.CodeUsage, def.Usage()))
			if def.Description() != "" {
				sender.Send(def.Description())
			}
			return true
		}
		defs := h.Registry().All()
		lines := make([]string, 0, len(defs))
		for _, def := range defs {
			lines = append(lines, fmt.Sprintf("%-10s %s", def.Name(), def.Description()))
		}
		sort.Strings(lines)
		for _, line := range lines {
			sender.Send(line)
		}
		return true
	}
}
