package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/refcache"
)

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := a.cache.Lookup(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%s: %w", args[0], ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cache.Set(cmd.Context(), args[0], args[1], a.ttl) {
				return fmt.Errorf("set %s: not stored", args[0])
			}
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add KEY VALUE",
		Short: "Store VALUE under KEY unless KEY is already set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cache.Add(cmd.Context(), args[0], args[1], a.ttl) {
				return fmt.Errorf("%s: %w", args[0], ErrExists)
			}
			return nil
		},
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del KEY",
		Short: "Delete KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cache.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("%s: %w", args[0], ErrNotFound)
			}
			return nil
		},
	}
}

func (a *app) hasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Print whether KEY is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.cache.Has(cmd.Context(), args[0]))
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry under the configured prefix",
		Long:  "Remove every entry under the configured prefix. memcached, bigcache and ristretto cannot list keys and are flushed entirely.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cache.Clear(cmd.Context()) {
				return fmt.Errorf("clear: failed")
			}
			return nil
		},
	}
}

func (a *app) groupCmd() *cobra.Command {
	group := &cobra.Command{
		Use:   "group",
		Short: "Grouped entries and group invalidation",
	}

	var ref uint64
	set := &cobra.Command{
		Use:   "set GROUP KEY VALUE",
		Short: "Store VALUE under KEY as a member of GROUP",
		Long:  "Store VALUE under KEY as a member of GROUP. Without --ref a fresh token is generated, which invalidates every other member.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cache.WriteGrouped(cmd.Context(), args[0], args[1], args[2], a.ttl, refcache.Ref(ref)) {
				return fmt.Errorf("group set %s/%s: not stored", args[0], args[1])
			}
			return nil
		},
	}
	set.Flags().Uint64Var(&ref, "ref", 0, "Write under this token (as printed by group get); 0 starts a new generation")

	get := &cobra.Command{
		Use:   "get GROUP KEY",
		Short: "Resolve KEY within GROUP and print state, token and value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cur, st := a.cache.ReadGrouped(cmd.Context(), args[0], args[1])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state: %s\nref: %s\n", st, strconv.FormatUint(uint64(cur), 10))
			if st == refcache.Valid {
				fmt.Fprintf(out, "value: %s\n", v)
			}
			return nil
		},
	}

	invalidate := &cobra.Command{
		Use:   "invalidate GROUP",
		Short: "Invalidate every member of GROUP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := a.cache.InvalidateGroup(cmd.Context(), args[0], a.ttl)
			if !ok {
				return fmt.Errorf("invalidate %s: failed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ref: %d\n", r)
			return nil
		},
	}

	group.AddCommand(set, get, invalidate)
	return group
}
