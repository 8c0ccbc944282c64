package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tinoosan/mika/internal/data"
)

func parseID(s string) (uint64, error) {
	id, err := data.ParseID(s)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", s, err)
	}
	return id, nil
}

func newTorrentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "torrent",
		Short:   "Torrent commands",
		Aliases: []string{"t"},
	}

	get := &cobra.Command{
		Use:   "get <torrent_id>",
		Short: "Show a torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := a.client(nil).TorrentGet(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}

	var name string
	add := &cobra.Command{
		Use:   "add <info_hash> <torrent_id>",
		Short: "Add a torrent to the tracker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			t, err := a.client(nil).TorrentAdd(cmd.Context(), args[0], id, name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	add.Flags().StringVar(&name, "name", "", "release name")

	del := &cobra.Command{
		Use:     "del <torrent_id>",
		Short:   "Delete a torrent",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.client(nil).TorrentDelete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(get, add, del)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Short:   "User commands",
		Aliases: []string{"u"},
	}

	get := &cobra.Command{
		Use:   "get <user_id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client(nil).UserGet(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}

	var (
		username string
		noLeech  bool
	)
	add := &cobra.Command{
		Use:   "add <user_id> <passkey>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var canLeech *bool
			if noLeech {
				f := false
				canLeech = &f
			}
			u, err := a.client(nil).UserAdd(cmd.Context(), id, args[1], username, canLeech)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
	add.Flags().StringVar(&username, "username", "", "display name")
	add.Flags().BoolVar(&noLeech, "no-leech", false, "create the user without download rights")

	var (
		uploaded, downloaded uint64
		passkey              string
		canLeech, enabled    bool
	)
	update := &cobra.Command{
		Use:   "update <user_id>",
		Short: "Change selected fields of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p data.UserPatch
			fl := cmd.Flags()
			if fl.Changed("uploaded") {
				p.Uploaded = &uploaded
			}
			if fl.Changed("downloaded") {
				p.Downloaded = &downloaded
			}
			if fl.Changed("passkey") {
				p.Passkey = &passkey
			}
			if fl.Changed("can-leech") {
				p.CanLeech = &canLeech
			}
			if fl.Changed("enabled") {
				p.Enabled = &enabled
			}
			if p == (data.UserPatch{}) {
				return fmt.Errorf("nothing to update")
			}
			u, err := a.client(nil).UserUpdate(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
	update.Flags().Uint64Var(&uploaded, "uploaded", 0, "uploaded total in bytes")
	update.Flags().Uint64Var(&downloaded, "downloaded", 0, "downloaded total in bytes")
	update.Flags().StringVar(&passkey, "passkey", "", "new passkey")
	update.Flags().BoolVar(&canLeech, "can-leech", true, "download rights")
	update.Flags().BoolVar(&enabled, "enabled", true, "account enabled")

	cmd.AddCommand(get, add, update)
	return cmd
}

func newWhitelistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "whitelist",
		Short:   "Client whitelist commands",
		Aliases: []string{"wl"},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Show whitelisted clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wl, err := a.client(nil).WhitelistList(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wl)
		},
	}
	add := &cobra.Command{
		Use:   "add <prefix> <client>",
		Short: "Whitelist a peer id prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client(nil).WhitelistAdd(cmd.Context(), args[0], args[1])
		},
	}
	del := &cobra.Command{
		Use:     "del <prefix>",
		Short:   "Remove a peer id prefix",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client(nil).WhitelistDelete(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(list, add, del)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "client: mika/%s\n", a.version)
			if local {
				return nil
			}
			v, err := a.client(nil).Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server: %s\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "skip the server query")
	return cmd
}

func newUptimeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uptime",
		Short: "Show server uptime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client(nil).Uptime(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print API mutations as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ch, err := a.client(nil).Events(ctx)
			if err != nil {
				return err
			}
			for e := range ch {
				if err := printJSON(cmd.OutOrStdout(), e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
