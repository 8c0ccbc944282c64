// Package cli wires the mika commands onto cobra.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/client"
	"github.com/tinoosan/mika/internal/config"
	"github.com/tinoosan/mika/internal/logging"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	version string
	cfgPath string

	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer

	clients []*client.Client
}

// NewRoot builds the command tree. version is reported by "mika version"
// and the server's /version route.
func NewRoot(version string) *cobra.Command {
	a := &app{version: version}
	root := &cobra.Command{
		Use:           "mika",
		Short:         "mika tracker backend and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ./mika.{yaml,json,toml})")

	root.AddCommand(
		newServeCmd(a),
		newWarmupCmd(a),
		newCleanupCmd(a),
		newTorrentsCmd(a),
		newUsersCmd(a),
		newWipeTorrentStatsCmd(a),
		newWipeUserStatsCmd(a),
		newTorrentCmd(a),
		newUserCmd(a),
		newWhitelistCmd(a),
		newVersionCmd(a),
		newUptimeCmd(a),
		newWatchCmd(a),
	)
	a.closeAfterRun(root)
	return root
}

// closeAfterRun wraps every RunE in the tree so API clients opened by a
// command are closed whether or not it fails.
func (a *app) closeAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.closeClients()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.closeAfterRun(sub)
	}
}

func (a *app) closeClients() {
	for _, c := range a.clients {
		if err := c.Close(); err != nil && a.log != nil {
			a.log.Debug("closing api client", "err", err)
		}
	}
	a.clients = nil
}

// load reads configuration and builds the logger. The server logs to
// stdout; admin commands keep stdout for their output and log to stderr.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	if cmd.Name() == "serve" {
		out = cmd.OutOrStdout()
	}
	l, closer, err := logging.NewWriter(cfg.Log, out)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.cfg, a.log, a.logCloser = cfg, l, closer
	return nil
}

func (a *app) store() *cache.Redis {
	return cache.NewRedis(cache.RedisOptions{
		Addr:       a.cfg.Redis.Addr,
		Password:   a.cfg.Redis.Password,
		DB:         a.cfg.Redis.DB,
		MaxRetries: a.cfg.Redis.TxRetries,
	})
}

// client returns an API client that is closed when the command returns;
// store may be nil for API-only commands.
func (a *app) client(store cache.Store) *client.Client {
	c := client.New(client.Options{
		BaseURL: a.cfg.Client.APIURL,
		Token:   a.cfg.Server.APIToken,
		Timeout: a.cfg.Client.Timeout,
		Store:   store,
		Log:     a.log,
	})
	a.clients = append(a.clients, c)
	return c
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
