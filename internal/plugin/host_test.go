package plugin

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/commons/internal/command"
	"github.com/danmuck/commons/internal/database"
	"github.com/danmuck/commons/internal/observability"
	"github.com/danmuck/commons/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	name     string
	console  bool
	operator bool
	perms    map[string]bool

	mu  sync.Mutex
	got []string
}

func player(name string, perms ...string) *fakeSender {
	s := &fakeSender{name: name, perms: map[string]bool{}}
	for _, p := range perms {
		s.perms[p] = true
	}
	return s
}

func console() *fakeSender { return &fakeSender{name: "CONSOLE", console: true} }

func (s *fakeSender) Name() string                { return s.name }
func (s *fakeSender) IsConsole() bool             { return s.console }
func (s *fakeSender) IsOperator() bool            { return s.operator }
func (s *fakeSender) HasPermission(n string) bool { return s.console || s.perms[n] }
func (s *fakeSender) Send(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
}

func (s *fakeSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

type funcModule struct {
	name     string
	startup  func(*Host) error
	shutdown func(*Host) error
}

func (m funcModule) Name() string { return m.name }

func (m funcModule) Startup(h *Host) error {
	if m.startup == nil {
		return nil
	}
	return m.startup(h)
}

func (m funcModule) Shutdown(h *Host) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(h)
}

type testHost struct {
	*Host
	reg   *prometheus.Registry
	calls map[string]int
	mu    sync.Mutex
}

func (th *testHost) called(name string) int {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.calls[name]
}

// newTestHost enables a host with reload (Static 0, console), set (Variable
// [1,2], commons.set), deny (always false) and boom (panics).
func newTestHost(t *testing.T, opts Options) *testHost {
	t.Helper()
	th := &testHost{reg: prometheus.NewRegistry(), calls: map[string]int{}}
	if opts.Name == "" {
		opts.Name = "Test"
	}
	opts.Metrics = observability.NewMetrics(th.reg)
	th.Host = New(opts)

	mod := funcModule{name: "core", startup: func(h *Host) error {
		h.Register(command.Spec{Name: "reload", Kind: command.MatchStatic, ConsoleEligible: true,
			Action: th.counting("reload", true)})
		h.Register(command.Spec{Name: "set", Kind: command.MatchVariable, MinArgs: 1, MaxArgs: 2, Permission: "commons.set",
			Action: th.counting("set", true)})
		h.Register(command.Spec{Name: "deny", Kind: command.MatchStatic,
			Action: th.counting("deny", false)})
		h.Register(command.Spec{Name: "boom", Kind: command.MatchStatic, ConsoleEligible: true,
			Action: func(context.Context, command.Sender, []string) bool { panic("kaboom") }})
		return nil
	}}
	if err := th.Enable(mod); err != nil {
		t.Fatalf("enable: %v", err)
	}
	return th
}

func (th *testHost) counting(name string, ok bool) command.Action {
	return func(_ context.Context, _ command.Sender, _ []string) bool {
		th.mu.Lock()
		defer th.mu.Unlock()
		th.calls[name]++
		return ok
	}
}

func last(msgs []string) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func TestOnCommandSuccessPaths(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	ctx := context.Background()

	con := console()
	if !th.OnCommand(ctx, con, "RELOAD", nil) {
		t.Fatalf("OnCommand must always report handled")
	}
	if th.called("reload") != 1 || len(con.messages()) != 0 {
		t.Fatalf("reload not invoked cleanly: calls=%d msgs=%v", th.called("reload"), con.messages())
	}

	alex := player("alex", "commons.set")
	th.OnCommand(ctx, alex, "set", []string{"motd", "hi"})
	if th.called("set") != 1 || len(alex.messages()) != 0 {
		t.Fatalf("set not invoked cleanly: calls=%d msgs=%v", th.called("set"), alex.messages())
	}
}

func TestOnCommandConsoleIneligible(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	con := console()
	th.OnCommand(context.Background(), con, "set", []string{"motd"})
	if th.called("set") != 0 {
		t.Fatalf("console must not invoke set")
	}
	if got := last(con.messages()); got != "[Test] This command cannot be executed from the console." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestOnCommandPermission(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	ctx := context.Background()

	sam := player("sam")
	th.OnCommand(ctx, sam, "set", []string{"motd"})
	if th.called("set") != 0 {
		t.Fatalf("action must not run without permission")
	}
	if got := last(sam.messages()); got != "[Test] You do not have permission to do that." {
		t.Fatalf("unexpected reply %q", got)
	}

	op := player("op")
	op.operator = true
	th.OnCommand(ctx, op, "set", []string{"motd"})
	if th.called("set") != 1 {
		t.Fatalf("operator should bypass permission node")
	}

	th.OnCommand(ctx, sam, "deny", nil)
	if th.called("deny") != 1 {
		t.Fatalf("deny action should run")
	}
	if got := last(sam.messages()); got != "[Test] You do not have permission to do that." {
		t.Fatalf("false action should reply PERM_ERR, got %q", got)
	}
}

func TestOnCommandArityError(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	alex := player("alex", "commons.set")
	th.OnCommand(context.Background(), alex, "set", []string{"a", "b", "c"})
	want := []string{
		"[Test] Incorrect number of arguments supplied.",
		"[Test] Usage: set <arg1> [arg2]",
	}
	if got := alex.messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("replies = %q, want %q", got, want)
	}
	if th.called("set") != 0 {
		t.Fatalf("arity error must not invoke")
	}
}

func TestOnCommandNotFound(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	alex := player("alex")
	ctx := context.Background()

	th.OnCommand(ctx, alex, "relod", nil)
	if got := last(alex.messages()); got != "[Test] Unknown command. Did you mean reload?" {
		t.Fatalf("unexpected suggestion %q", got)
	}
	th.OnCommand(ctx, alex, "zzzzzzzz", nil)
	if got := last(alex.messages()); got != "[Test] Unknown command. Type help for a list of commands." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestOnCommandRecoversPanics(t *testing.T) {
	testlog.Start(t)
	logger, buf := testlog.Capture(t)
	th := newTestHost(t, Options{Logger: logger})
	con := console()
	ctx := context.Background()

	th.OnCommand(ctx, con, "boom", nil)
	if got := last(con.messages()); got != "[Test] The command could not be completed." {
		t.Fatalf("unexpected reply %q", got)
	}
	if !strings.Contains(buf.String(), ErrActionPanicked.Error()) {
		t.Fatalf("panic not logged: %s", buf.String())
	}
	th.OnCommand(ctx, con, "reload", nil)
	if th.called("reload") != 1 {
		t.Fatalf("host should keep working after a panic")
	}
}

func TestOnCommandMetrics(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop()})
	ctx := context.Background()
	con := console()
	th.OnCommand(ctx, con, "reload", nil)
	th.OnCommand(ctx, con, "reload", []string{"extra"})
	th.OnCommand(ctx, con, "nope", nil)
	th.OnCommand(ctx, con, "boom", nil)

	expected := `
# HELP commons_command_resolutions_total Command resolutions by result.
# TYPE commons_command_resolutions_total counter
commons_command_resolutions_total{plugin="Test",result="arity_error"} 1
commons_command_resolutions_total{plugin="Test",result="not_found"} 1
commons_command_resolutions_total{plugin="Test",result="success"} 2
# HELP commons_command_invocations_total Command action invocations by outcome.
# TYPE commons_command_invocations_total counter
commons_command_invocations_total{command="boom",outcome="panicked",plugin="Test"} 1
commons_command_invocations_total{command="reload",outcome="ok",plugin="Test"} 1
`
	if err := testutil.GatherAndCompare(th.reg, strings.NewReader(expected),
		"commons_command_resolutions_total", "commons_command_invocations_total"); err != nil {
		t.Fatalf("metrics mismatch: %v", err)
	}
}

func TestOnCommandRateLimit(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop(), CommandRate: 0.001, CommandBurst: 1})
	ctx := context.Background()

	alex := player("alex", "commons.set")
	th.OnCommand(ctx, alex, "set", []string{"a"})
	th.OnCommand(ctx, alex, "SET", []string{"b"})
	if th.called("set") != 1 {
		t.Fatalf("second command should be throttled, calls=%d", th.called("set"))
	}
	if got := last(alex.messages()); got != "[Test] You are sending commands too quickly. Slow down." {
		t.Fatalf("unexpected reply %q", got)
	}

	sam := player("sam", "commons.set")
	th.OnCommand(ctx, sam, "set", []string{"c"})
	if th.called("set") != 2 {
		t.Fatalf("limits are per sender")
	}

	con := console()
	for i := 0; i < 3; i++ {
		th.OnCommand(ctx, con, "reload", nil)
	}
	if th.called("reload") != 3 {
		t.Fatalf("console is never throttled")
	}
}

func TestOnCommandLocalized(t *testing.T) {
	testlog.Start(t)
	th := newTestHost(t, Options{Logger: zerolog.Nop(), Language: "de-DE"})
	alex := player("alex")
	th.OnCommand(context.Background(), alex, "relod", nil)
	if got := last(alex.messages()); got != "[Test] Unbekannter Befehl. Meintest du reload?" {
		t.Fatalf("unexpected localized reply %q", got)
	}
}

func TestEnableLifecycle(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Name: "Life", Logger: zerolog.Nop()})
	if err := h.Enable(); !errors.Is(err, ErrNoModules) {
		t.Fatalf("expected ErrNoModules, got %v", err)
	}

	var order []string
	mod := func(name string) Module {
		return funcModule{
			name: name,
			startup: func(h *Host) error {
				order = append(order, "start:"+name)
				h.Register(command.Spec{Name: name, Kind: command.MatchStatic})
				return nil
			},
			shutdown: func(*Host) error {
				order = append(order, "stop:"+name)
				return nil
			},
		}
	}
	if err := h.Enable(mod("a"), mod("b")); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !h.Enabled() || !h.Registry().Sealed() {
		t.Fatalf("enable must seal the registry")
	}
	if err := h.Enable(mod("c")); !errors.Is(err, ErrAlreadyEnabled) {
		t.Fatalf("expected ErrAlreadyEnabled, got %v", err)
	}
	if h.Register(command.Spec{Name: "late", Kind: command.MatchStatic}) {
		t.Fatalf("registration after enable must fail")
	}
	if err := h.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if h.Enabled() {
		t.Fatalf("host should be disabled")
	}
}

func TestEnableRollsBackOnStartupError(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Logger: zerolog.Nop()})
	var stopped []string
	boom := errors.New("boom")
	err := h.Enable(
		funcModule{name: "a", shutdown: func(*Host) error { stopped = append(stopped, "a"); return nil }},
		funcModule{name: "b", startup: func(*Host) error { return boom }},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected startup error, got %v", err)
	}
	if !reflect.DeepEqual(stopped, []string{"a"}) || h.Enabled() {
		t.Fatalf("started modules must be stopped: %v", stopped)
	}
}

func TestFailedEnableDropsStagedCommands(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Name: "Test", Logger: zerolog.Nop()})
	var calls int
	good := funcModule{name: "good", startup: func(h *Host) error {
		h.Register(command.Spec{Name: "a", Kind: command.MatchStatic, ConsoleEligible: true,
			Action: func(context.Context, command.Sender, []string) bool { calls++; return true }})
		return nil
	}}
	boom := errors.New("boom")
	if err := h.Enable(good, funcModule{name: "bad", startup: func(*Host) error { return boom }}); !errors.Is(err, boom) {
		t.Fatalf("expected startup error, got %v", err)
	}
	if _, ok := h.Registry().Lookup("a"); ok {
		t.Fatalf("rolled back command must not stay registered")
	}

	con := console()
	h.OnCommand(context.Background(), con, "a", nil)
	if calls != 0 {
		t.Fatalf("rolled back command was invoked %d times", calls)
	}
	if got := con.messages(); len(got) != 1 || got[0] != "[Test] This plugin is disabled." {
		t.Fatalf("disabled reply = %v", got)
	}

	if err := h.Enable(good); err != nil {
		t.Fatalf("retried enable: %v", err)
	}
	if n := h.Registry().Len(); n != 1 {
		t.Fatalf("registry holds %d commands after retry, want 1", n)
	}
	h.OnCommand(context.Background(), con, "a", nil)
	if calls != 1 {
		t.Fatalf("command should run once after a successful enable, ran %d", calls)
	}
}

func TestDisableStopsDispatch(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Name: "Test", Logger: zerolog.Nop()})
	var calls int
	if err := h.Enable(funcModule{name: "m", startup: func(h *Host) error {
		h.Register(command.Spec{Name: "ping", Kind: command.MatchStatic, ConsoleEligible: true,
			Action: func(context.Context, command.Sender, []string) bool { calls++; return true }})
		return nil
	}}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := h.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if n := h.Registry().Len(); n != 0 {
		t.Fatalf("disable left %d commands registered", n)
	}
	con := console()
	h.OnCommand(context.Background(), con, "ping", nil)
	if calls != 0 {
		t.Fatalf("command ran after disable")
	}
	if got := con.messages(); len(got) != 1 || !strings.Contains(got[0], "disabled") {
		t.Fatalf("disabled reply = %v", got)
	}
}

func TestDisableJoinsErrors(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Logger: zerolog.Nop()})
	e1, e2 := errors.New("one"), errors.New("two")
	if err := h.Enable(
		funcModule{name: "a", shutdown: func(*Host) error { return e1 }},
		funcModule{name: "b", shutdown: func(*Host) error { return e2 }},
	); err != nil {
		t.Fatalf("enable: %v", err)
	}
	err := h.Disable()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected both shutdown errors, got %v", err)
	}
}

func TestRegisterRejectionLogged(t *testing.T) {
	testlog.Start(t)
	logger, buf := testlog.Capture(t)
	h := New(Options{Logger: logger})
	if !h.Register(command.Spec{Name: "home", Kind: command.MatchStatic}) {
		t.Fatalf("first registration should succeed")
	}
	if h.Register(command.Spec{Name: "HOME", Kind: command.MatchStatic}) {
		t.Fatalf("duplicate should be rejected")
	}
	if h.Register(command.Spec{Name: "bad", Kind: command.MatchStatic, MinArgs: 1, MaxArgs: 2}) {
		t.Fatalf("invalid static shape should be rejected")
	}
	out := buf.String()
	if !strings.Contains(out, "Failed to register command: HOME") || !strings.Contains(out, "Failed to register command: bad") {
		t.Fatalf("expected CMD_REG_ERR warnings: %s", out)
	}
}

func TestDatabaseAccessor(t *testing.T) {
	testlog.Start(t)
	h := New(Options{Logger: zerolog.Nop()})
	if _, err := h.Database(); !errors.Is(err, ErrDatabaseDisabled) {
		t.Fatalf("expected ErrDatabaseDisabled, got %v", err)
	}

	h = New(Options{Logger: zerolog.Nop(), DatabaseEnabled: true})
	if !h.DatabaseEnabled() {
		t.Fatalf("database should be enabled")
	}
	if _, err := h.Database(); !errors.Is(err, ErrDatabaseNotInitialized) {
		t.Fatalf("expected ErrDatabaseNotInitialized, got %v", err)
	}

	db, err := database.Open(context.Background(), database.Config{Driver: database.DriverSQLite, Path: ":memory:"}, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	h.AttachDatabase(db)
	got, err := h.Database()
	if err != nil || got != db {
		t.Fatalf("attached database not returned: %v", err)
	}
}
