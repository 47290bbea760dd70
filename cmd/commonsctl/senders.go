package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/commons/internal/command"
)

// consoleSender is the operator at the terminal.
type consoleSender struct {
	out io.Writer
}

func (c *consoleSender) Name() string              { return "CONSOLE" }
func (c *consoleSender) IsConsole() bool           { return true }
func (c *consoleSender) IsOperator() bool          { return true }
func (c *consoleSender) HasPermission(string) bool { return true }
func (c *consoleSender) Send(msg string)           { fmt.Fprintln(c.out, msg) }

// playerSender is a simulated player. Messages are echoed to out with the
// recipient's name so broadcasts stay readable on one terminal.
type playerSender struct {
	name     string
	operator bool
	perms    map[string]struct{}
	out      io.Writer
}

func newPlayer(p playerConfig, out io.Writer) *playerSender {
	perms := make(map[string]struct{}, len(p.Permissions))
	for _, node := range p.Permissions {
		perms[strings.ToLower(node)] = struct{}{}
	}
	return &playerSender{name: p.Name, operator: p.Operator, perms: perms, out: out}
}

func (p *playerSender) Name() string     { return p.name }
func (p *playerSender) IsConsole() bool  { return false }
func (p *playerSender) IsOperator() bool { return p.operator }
func (p *playerSender) Send(msg string)  { fmt.Fprintf(p.out, "-> %s: %s\n", p.name, msg) }

// HasPermission matches exact nodes and "prefix.*" wildcards.
func (p *playerSender) HasPermission(node string) bool {
	node = strings.ToLower(node)
	if _, ok := p.perms[node]; ok {
		return true
	}
	if _, ok := p.perms["*"]; ok {
		return true
	}
	for i := len(node) - 1; i > 0; i-- {
		if node[i] != '.' {
			continue
		}
		if _, ok := p.perms[node[:i]+".*"]; ok {
			return true
		}
	}
	return false
}

// roster is the online player list used as the broadcast audience.
type roster struct {
	mu      sync.RWMutex
	players []*playerSender
}

func newRoster(cfgs []playerConfig, out io.Writer) *roster {
	r := &roster{players: make([]*playerSender, 0, len(cfgs))}
	for _, p := range cfgs {
		r.players = append(r.players, newPlayer(p, out))
	}
	return r
}

func (r *roster) Players() []command.Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]command.Sender, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

func (r *roster) find(name string) (*playerSender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if strings.EqualFold(p.name, name) {
			return p, true
		}
	}
	return nil, false
}
