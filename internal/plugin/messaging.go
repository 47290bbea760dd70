package plugin

import (
	"fmt"
	"strings"

	"github.com/danmuck/commons/internal/command"
	"github.com/rs/zerolog"
)

// FormatPlayerMessage prefixes msg with "[Name] " when useName is set.
func (h *Host) FormatPlayerMessage(msg string, useName bool) string {
	if !useName {
		return msg
	}
	return "[" + h.name + "] " + msg
}

// SendPlayerMessage delivers msg to sender.
func (h *Host) SendPlayerMessage(sender command.Sender, msg string, useName bool) {
	if sender == nil {
		return
	}
	sender.Send(h.FormatPlayerMessage(msg, useName))
}

// SendConsoleMessage writes msg to the host log at level.
func (h *Host) SendConsoleMessage(level zerolog.Level, msg string) {
	h.log.WithLevel(level).Msg(msg)
}

// Audience lists the senders that can currently receive a broadcast.
type Audience interface {
	Players() []command.Sender
}

// Broadcast is a message sent to every player holding all Permissions.
// Operators bypass the permission check. Values, when present, are applied
// to Message as fmt verbs.
type Broadcast struct {
	Message     string
	Values      []any
	Permissions []string
	UseName     bool
}

// Text renders the broadcast body.
func (b Broadcast) Text() string {
	if len(b.Values) == 0 {
		return b.Message
	}
	return fmt.Sprintf(b.Message, b.Values...)
}

func (b Broadcast) permitted(s command.Sender) bool {
	if s.IsOperator() {
		return true
	}
	for _, perm := range b.Permissions {
		if strings.TrimSpace(perm) == "" {
			continue
		}
		if !s.HasPermission(perm) {
			return false
		}
	}
	return true
}

// Broadcast delivers b to the permitted members of audience, relays it to
// the console log, and returns the number of players reached.
func (h *Host) Broadcast(audience Audience, b Broadcast) int {
	text := h.FormatPlayerMessage(b.Text(), b.UseName)
	reached := 0
	if audience != nil {
		for _, p := range audience.Players() {
			if p == nil || p.IsConsole() || !b.permitted(p) {
				continue
			}
			p.Send(text)
			reached++
		}
	}
	h.log.Info().
		Int("recipients", reached).
		Strs("permissions", b.Permissions).
		Msg(text)
	return reached
}
