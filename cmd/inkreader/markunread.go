// ABOUTME: Mark-unread command for marking an article as unread
// ABOUTME: The change is stamped now, so it wins over older reads from other devices

package main

import (
	"github.com/spf13/cobra"
)

var markUnreadCmd = &cobra.Command{
	Use:   "mark-unread <article-id>",
	Short: "Mark an article as unread",
	Long:  "Mark a single article as unread by ID or ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := syncKey()
		if err != nil {
			return err
		}
		return setReadState(cmd, key, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(markUnreadCmd)
}
