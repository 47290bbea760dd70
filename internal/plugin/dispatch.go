package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/commons/internal/command"
	"github.com/danmuck/commons/internal/localization"
	"github.com/danmuck/commons/internal/observability"
	"github.com/google/uuid"
)

// OnCommand handles one invocation of root with args from sender. The root
// name is prepended to args before resolution. Every outcome is reported to
// the sender, so the return value is always true.
func (h *Host) OnCommand(ctx context.Context, sender command.Sender, root string, args []string) bool {
	start := time.Now()
	inv := observability.Invocation{
		ID:     uuid.NewString(),
		Sender: sender.Name(),
	}
	defer func() {
		inv.Duration = time.Since(start)
		observability.LogInvocation(h.log, inv)
	}()

	if !h.Enabled() {
		inv.Result = "disabled"
		h.SendPlayerMessage(sender, h.loc.Get(localization.CodePluginDisabled), true)
		return true
	}
	if !sender.IsConsole() && !h.throttle.allow(sender.Name()) {
		inv.Result = "throttled"
		h.metrics.RecordThrottled()
		h.SendPlayerMessage(sender, h.loc.Get(localization.CodeRateLimited), true)
		return true
	}

	tokens := make([]string, 0, len(args)+1)
	tokens = append(tokens, root)
	tokens = append(tokens, args...)
	res := h.Dispatcher().Resolve(tokens)
	inv.Result = res.Kind.String()
	h.metrics.RecordResolution(h.name, inv.Result)

	switch res.Kind {
	case command.ResultSuccess:
		def := res.Command
		inv.Command = def.Name()
		inv.Outcome, inv.Err = h.execute(ctx, sender, def, args)
		h.metrics.RecordInvocation(h.name, def.Name(), inv.Outcome, time.Since(start))
	case command.ResultArityError:
		inv.Command = res.Command.Name()
		h.SendPlayerMessage(sender, h.loc.Get(localization.CodeWrongArgCount), true)
		h.SendPlayerMessage(sender, h.loc.Format(localization.CodeUsage, res.Command.Usage()), true)
	default:
		if name, ok := h.Suggest(root); ok {
			h.SendPlayerMessage(sender, h.loc.Format(localization.CodeNoCommandSuggest, name), true)
		} else {
			h.SendPlayerMessage(sender, h.loc.Get(localization.CodeNoCommand), true)
		}
	}
	return true
}

// execute runs a resolved definition for sender and returns the outcome label.
func (h *Host) execute(ctx context.Context, sender command.Sender, def *command.Definition, args []string) (string, error) {
	if sender.IsConsole() {
		if !def.ConsoleEligible() {
			h.SendPlayerMessage(sender, h.loc.Get(localization.CodeNoConsole), true)
			return observability.OutcomeNoConsole, nil
		}
	} else if perm := def.Permission(); perm != "" && !sender.IsOperator() && !sender.HasPermission(perm) {
		h.SendPlayerMessage(sender, h.loc.Get(localization.CodePermissionDenied), true)
		return observability.OutcomeRejected, nil
	}

	ok, err := invokeSafely(ctx, sender, def, args)
	if err != nil {
		h.SendPlayerMessage(sender, h.loc.Get(localization.CodeCommandFailed), true)
		return observability.OutcomePanicked, err
	}
	if !ok {
		if sender.IsConsole() {
			h.log.Warn().Str("command", def.Name()).Msg("console command reported failure")
		} else {
			h.SendPlayerMessage(sender, h.loc.Get(localization.CodePermissionDenied), true)
		}
		return observability.OutcomeRejected, nil
	}
	return observability.OutcomeOK, nil
}

func invokeSafely(ctx context.Context, sender command.Sender, def *command.Definition, args []string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("%w: %s: %v", ErrActionPanicked, def.Name(), r)
		}
	}()
	return def.Invoke(ctx, sender, args), nil
}
