package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-interview/backend/internal/store/file"
)

func newCompactCmd() *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the fallback log",
		Long:  "Rewrites the fallback log in place, dropping corrupt lines and converting legacy JSON array documents to one message per line.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.fallbackPath, "fallback", "", "fallback log path (default from FALLBACK_STORE_PATH)")
	return cmd
}

func runCompact(cmd *cobra.Command, flags storeFlags) error {
	cfg, err := loadStoreConfig(flags)
	if err != nil {
		return err
	}

	fallback := file.Open(cfg.FallbackPath)
	if !fallback.Persistent() {
		return fmt.Errorf("fallback log %s is not writable", cfg.FallbackPath)
	}

	kept, err := fallback.Compact(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compacted %s: %d messages kept\n", fallback.Path(), kept)
	return nil
}
