package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/commons/internal/command"
	"github.com/danmuck/commons/internal/config"
	"github.com/danmuck/commons/internal/database"
	"github.com/danmuck/commons/internal/localization"
	"github.com/danmuck/commons/internal/logging"
	"github.com/danmuck/commons/internal/observability"
	"github.com/danmuck/commons/internal/plugin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	as         string
	locale     string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "commonsctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts cliOptions
	root := &cobra.Command{
		Use:           "commonsctl",
		Short:         "Interactive console for a commons plugin host",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, cmd)
		},
	}
	root.Flags().StringVar(&opts.configPath, "config", "", "session and option file (default $COMMONS_CONFIG_PATH)")
	root.Flags().StringVar(&opts.as, "as", "", "act as this player instead of the console")
	root.Flags().StringVar(&opts.locale, "locale", "", "reply language (default $COMMONS_LANGUAGE)")
	return root
}

func run(ctx context.Context, opts cliOptions, cmd *cobra.Command) error {
	logging.ConfigureRuntime()
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if opts.configPath == "" {
		opts.configPath = settings.ConfigPath
	}
	if opts.locale == "" {
		opts.locale = settings.Language
	}

	logger := observability.InitLoggerTo(cmd.ErrOrStderr(), "commonsctl")
	session, err := loadSessionConfig(opts.configPath, defaultSessionConfig(settings.PluginName, opts.locale))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("locale") {
		session.Language = opts.locale
	}

	loc := localization.NewLocalizer(nil, session.Language)
	options, err := loadOptions(opts.configPath, logger, loc)
	if err != nil {
		return err
	}

	var db *database.Manager
	if settings.UsesDatabase() {
		db, err = database.Open(ctx, databaseConfig(settings), logger, loc)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	out := cmd.OutOrStdout()
	audience := newRoster(session.Players, out)
	host := plugin.New(plugin.Options{
		Name:            session.Name,
		Language:        session.Language,
		Logger:          logger,
		Metrics:         observability.DefaultMetrics(),
		Config:          options,
		DatabaseEnabled: settings.UsesDatabase(),
		Database:        db,
		CommandRate:     settings.CommandRate,
		CommandBurst:    settings.CommandBurst,
	})
	if err := host.Enable(newDemoModule(opts.configPath, audience)); err != nil {
		return err
	}
	defer func() {
		if err := host.Disable(); err != nil {
			logger.Warn().Err(err).Msg("plugin disable")
		}
	}()

	sender, err := pickSender(opts.as, audience, out)
	if err != nil {
		return err
	}
	r := &repl{
		host:   host,
		sender: sender,
		in:     cmd.InOrStdin(),
		out:    out,
		prompt: sender.Name() + "> ",
	}
	return r.run(ctx)
}

func loadOptions(path string, logger zerolog.Logger, loc *localization.Localizer) (*config.Manager, error) {
	if fileExists(path) {
		return config.Load(path, logger, loc)
	}
	return config.Parse("", logger, loc)
}

func databaseConfig(s config.Settings) database.Config {
	return database.Config{
		Driver:   s.DBDriver,
		Path:     s.DBPath,
		Host:     s.DBHost,
		Port:     s.DBPort,
		Name:     s.DBName,
		User:     s.DBUser,
		Password: s.DBPassword,
		Debug:    s.DBDebug,
	}
}

func pickSender(name string, audience *roster, out io.Writer) (command.Sender, error) {
	if name == "" {
		return &consoleSender{out: out}, nil
	}
	p, ok := audience.find(name)
	if !ok {
		return nil, fmt.Errorf("unknown player %q", name)
	}
	return p, nil
}
