package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type playerConfig struct {
	Name        string   `toml:"name"`
	Operator    bool     `toml:"operator"`
	Permissions []string `toml:"permissions"`
}

type fileConfig struct {
	Name     string         `toml:"name"`
	Language string         `toml:"language"`
	Players  []playerConfig `toml:"players"`
}

// sessionConfig is the console session loaded from commonsctl.toml. The
// same file also carries the plugin option table under [options].
type sessionConfig struct {
	Name     string
	Language string
	Players  []playerConfig
}

func defaultSessionConfig(name, language string) sessionConfig {
	return sessionConfig{Name: name, Language: language}
}

// loadSessionConfig overlays the file at path onto the defaults. A missing
// file yields the defaults.
func loadSessionConfig(path string, defaults sessionConfig) (sessionConfig, error) {
	cfg := defaults

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return sessionConfig{}, fmt.Errorf("load commonsctl config: %w", err)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}

	if meta.IsDefined("language") {
		if lang := strings.TrimSpace(raw.Language); lang != "" {
			cfg.Language = lang
		}
	}

	if meta.IsDefined("players") {
		players, err := normalizePlayers(raw.Players)
		if err != nil {
			return sessionConfig{}, err
		}
		cfg.Players = players
	}

	return cfg, nil
}

func normalizePlayers(in []playerConfig) ([]playerConfig, error) {
	out := make([]playerConfig, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("players: entry without a name")
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("players: duplicate player %q", name)
		}
		seen[key] = struct{}{}

		perms := make([]string, 0, len(p.Permissions))
		for _, node := range p.Permissions {
			if node = strings.TrimSpace(node); node != "" {
				perms = append(perms, node)
			}
		}
		out = append(out, playerConfig{Name: name, Operator: p.Operator, Permissions: perms})
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
