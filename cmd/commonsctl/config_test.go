package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/commons/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commonsctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSessionConfigOverlaysFile(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
name = " Phoenix "
language = "de-DE"

[[players]]
name = "alex"
operator = true

[[players]]
name = " sam "
permissions = ["commons.set", " ", "commons.chat.*"]

[options]
motd = "hi"
`)
	cfg, err := loadSessionConfig(path, defaultSessionConfig("Commons", "en-US"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "Phoenix" || cfg.Language != "de-DE" {
		t.Fatalf("unexpected header: %+v", cfg)
	}
	want := []playerConfig{
		{Name: "alex", Operator: true, Permissions: []string{}},
		{Name: "sam", Permissions: []string{"commons.set", "commons.chat.*"}},
	}
	if !reflect.DeepEqual(cfg.Players, want) {
		t.Fatalf("players = %+v, want %+v", cfg.Players, want)
	}
}

func TestLoadSessionConfigKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "name = \"\"\n")
	cfg, err := loadSessionConfig(path, defaultSessionConfig("Commons", "en-US"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "Commons" || cfg.Language != "en-US" || cfg.Players != nil {
		t.Fatalf("defaults not kept: %+v", cfg)
	}

	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, err = loadSessionConfig(missing, defaultSessionConfig("Commons", "en-US"))
	if err != nil || cfg.Name != "Commons" {
		t.Fatalf("missing file should yield defaults: %+v %v", cfg, err)
	}
}

func TestLoadSessionConfigRejectsBadPlayers(t *testing.T) {
	testlog.Start(t)
	for _, body := range []string{
		"[[players]]\nname = \"\"\n",
		"[[players]]\nname = \"alex\"\n[[players]]\nname = \"ALEX\"\n",
	} {
		if _, err := loadSessionConfig(writeFile(t, body), defaultSessionConfig("x", "en-US")); err == nil || !strings.Contains(err.Error(), "players") {
			t.Fatalf("expected players error for %q, got %v", body, err)
		}
	}
	if _, err := loadSessionConfig(writeFile(t, "name = "), defaultSessionConfig("x", "en-US")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPlayerPermissions(t *testing.T) {
	testlog.Start(t)
	p := newPlayer(playerConfig{Name: "sam", Permissions: []string{"commons.set", "Commons.Chat.*"}}, nil)
	cases := map[string]bool{
		"commons.set":       true,
		"COMMONS.SET":       true,
		"commons.chat.read": true,
		"commons.chat.a.b":  true,
		"commons.broadcast": false,
		"commons":           false,
	}
	for node, want := range cases {
		if got := p.HasPermission(node); got != want {
			t.Fatalf("HasPermission(%q) = %v, want %v", node, got, want)
		}
	}
	star := newPlayer(playerConfig{Name: "root", Permissions: []string{"*"}}, nil)
	if !star.HasPermission("anything.at.all") {
		t.Fatalf("* should grant every node")
	}
}
