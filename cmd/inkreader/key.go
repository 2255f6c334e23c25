// ABOUTME: Sync key commands for creating, showing, and checking reading-history keys
// ABOUTME: A key is 8 lowercase letters or digits shared between a person's devices

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/config"
	"github.com/harper/inkreader/internal/sync"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage sync keys",
	Long: `A sync key names one reading history. Use the same key on every device
to share which articles you have read. Keys carry no secret; anyone with
your key can see and change your read marks on a shared database.`,
}

var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new sync key",
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")
		out := cmd.OutOrStdout()

		key, err := core.CreateSyncKey(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to create sync key: %w", err)
		}
		fmt.Fprintln(out, bold(key))

		if !save {
			fmt.Fprintln(out, faint("Use it with --key, or run 'inkreader key new --save' to store one in your config"))
			return nil
		}

		// Reload so flag overrides are not written back.
		fileCfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg.SyncKey = key
		if err := fileCfg.Save(cfgPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(out, "Saved as default key in %s\n", configPathForDisplay())
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configured sync key",
	Annotations: map[string]string{
		annotationNoCore: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := syncKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var keyCheckCmd = &cobra.Command{
	Use:   "check <key>",
	Short: "Check whether a sync key is well formed and seen before",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !core.ValidateSyncKey(args[0]) {
			return fmt.Errorf("invalid sync key %q: need %d letters or digits", args[0], sync.KeyLength)
		}

		key, err := sync.NormalizeKey(args[0])
		if err != nil {
			return err
		}
		known, err := core.SyncKeyKnown(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to look up sync key: %w", err)
		}
		if known {
			fmt.Fprintf(out, "%s %s has reading history on this device\n", green("✓"), key)
		} else {
			fmt.Fprintf(out, "%s %s is valid but has no history here yet\n", green("✓"), key)
		}
		return nil
	},
}

func configPathForDisplay() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.GetConfigPath()
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyNewCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyCheckCmd)

	keyNewCmd.Flags().Bool("save", false, "store the new key as the default in the config file")
}
