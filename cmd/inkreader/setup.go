// ABOUTME: Cobra command for interactive inkreader configuration.
// ABOUTME: Launches a bubbletea TUI wizard to pick the data directory and sync key.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/config"
	"github.com/harper/inkreader/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure inkreader",
	Long:  "Interactive wizard to choose the data directory and the sync key for this device.",
	Annotations: map[string]string{
		annotationNoCore: "true",
	},
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Start from the file so flag overrides are not persisted.
	fileCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(fileCfg.DataDir, fileCfg.SyncKey)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup canceled.")
		return nil
	}

	fileCfg.DataDir, fileCfg.SyncKey = final.Result()
	if err := fileCfg.Save(cfgPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configPathForDisplay())
	return nil
}
