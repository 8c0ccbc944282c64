package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/coldstore"
	"github.com/tinoosan/mika/internal/maintenance"
	"github.com/tinoosan/mika/internal/repo"
	"github.com/tinoosan/mika/internal/warmup"
)

func (a *app) warmup(ctx context.Context, store cache.Store) (warmup.Report, error) {
	src, err := coldstore.NewPostgres(a.cfg.ColdStore.DSN, a.cfg.ColdStore.UserStats)
	if err != nil {
		return warmup.Report{}, err
	}
	defer func() { _ = src.Close() }()
	im := warmup.New(a.log, src,
		repo.NewCacheTorrentRepo(store),
		repo.NewCacheUserRepo(store),
		repo.NewCacheWhitelistRepo(store),
		repo.NewCacheStatsRepo(store),
	)
	return im.Run(ctx)
}

// withStore runs fn against the configured cache store.
func (a *app) withStore(fn func(store cache.Store) error) error {
	store := a.store()
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newWarmupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Load torrents, users and the whitelist from the cold store into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store cache.Store) error {
				rep, err := a.warmup(cmd.Context(), store)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	var opts maintenance.Options
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Report and repair legacy keys, bad counters and stale mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("delete") {
				opts.Delete = a.cfg.Maintenance.Delete
			}
			if !cmd.Flags().Changed("update") {
				opts.Update = a.cfg.Maintenance.Update
			}
			return a.withStore(func(store cache.Store) error {
				rep, err := a.client(store).Cleanup(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete legacy keys and stale mappings")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "reset damaged torrent counters")
	return cmd
}

func newTorrentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "torrents",
		Short: "List torrents held in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store cache.Store) error {
				list, err := a.client(store).Torrents(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TORRENT_ID\tINFO_HASH\tSEEDERS\tLEECHERS\tSNATCHES\tUPLOADED\tDOWNLOADED\tNAME")
				for _, t := range list {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
						t.TorrentID, t.InfoHash, t.Seeders, t.Leechers, t.Snatches, t.Uploaded, t.Downloaded, t.ReleaseName)
				}
				return tw.Flush()
			})
		},
	}
}

func newUsersCmd(a *app) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users held in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store cache.Store) error {
				list, err := a.client(store).Users(cmd.Context(), sortBy)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER_ID\tUSERNAME\tPASSKEY\tUPLOADED\tDOWNLOADED\tSNATCHES\tCAN_LEECH\tENABLED")
				for _, u := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%t\t%t\n",
						u.UserID, u.Username, u.Passkey, u.Uploaded, u.Downloaded, u.Snatches, u.CanLeech, u.Enabled)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "user_id", "sort by user_id, uploaded or downloaded")
	return cmd
}

func newWipeTorrentStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wipetorstats",
		Short: "Reset uploaded and downloaded totals on every torrent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store cache.Store) error {
				n, err := a.client(store).WipeTorrentStats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d torrents\n", n)
				return nil
			})
		},
	}
}

func newWipeUserStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wipeuserstats",
		Short: "Reset transfer totals, corrupt and snatches on every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store cache.Store) error {
				n, err := a.client(store).WipeUserStats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d users\n", n)
				return nil
			})
		},
	}
}
