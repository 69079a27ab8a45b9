package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/tui"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

const (
	ServiceName      = "octocommerce-console"
	ServiceNamespace = "octocommerce"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Operator console backend: real-time notifications and server-driven grids",
		Version: fmt.Sprintf("%s (%s@%s, %s)", version, commit, branch, commitDate),
		Commands: []*cli.Command{
			serverCmd(),
			tuiCmd(),
		},
	}

	return app.Run(os.Args)
}

var configFileFlag = &cli.StringFlag{
	Name:    "config_file",
	Usage:   "Path to the configuration file (yaml, toml or json)",
	EnvVars: []string{"CONSOLE_CONFIG_FILE"},
}

// loadConfig reads the file plus any overrides given after "--", e.g.
// `server --config_file console.yaml -- --log.level=debug`.
func loadConfig(c *cli.Context) (*config.Config, *config.Loader, error) {
	return config.LoadConfig(c.String(configFileFlag.Name), c.Args().Slice())
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the console HTTP/WebSocket server",
		Flags:   []cli.Flag{configFileFlag},
		Action: func(c *cli.Context) error {
			cfg, loader, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg, loader, LogSink{Writer: os.Stderr})

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}

func tuiCmd() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Log in and watch notifications in the terminal",
		Flags: []cli.Flag{
			configFileFlag,
			&cli.StringFlag{Name: "email", Required: true, EnvVars: []string{"CONSOLE_EMAIL"}},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"CONSOLE_PASSWORD"}},
			&cli.StringFlag{
				Name:  "log_file",
				Usage: "Where to write logs while the terminal is taken over",
				Value: filepath.Join(os.TempDir(), ServiceName+"-tui.log"),
			},
		},
		Action: func(c *cli.Context) error {
			cfg, loader, err := loadConfig(c)
			if err != nil {
				return err
			}

			var sink io.Writer = io.Discard
			if path := c.String("log_file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				sink = f
			}

			var sessions *service.SessionRegistry
			app := NewTUIApp(cfg, loader, LogSink{Writer: sink}, fx.Populate(&sessions))

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = app.Stop(context.Background()) }()

			sess, err := sessions.Login(ctx, backend.Credentials{
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if !sess.Identity().IsPrivileged() {
				return fmt.Errorf("account role %s has no real-time notifications", sess.Identity().Role)
			}

			return tui.Run(ctx, sess)
		},
	}
}
