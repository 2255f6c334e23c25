// ABOUTME: Open command for launching article links in the browser
// ABOUTME: Opens the article's link and marks it read for the configured sync key

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/reader"
)

var openCmd = &cobra.Command{
	Use:   "open <article-id>",
	Short: "Open article link in browser and mark as read",
	Long:  "Open an article's link in your default browser and, when a sync key is configured, mark it as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := optionalSyncKey()
		article, err := core.GetArticle(cmd.Context(), args[0], key)
		if err != nil {
			return fmt.Errorf("failed to find article: %w", err)
		}
		if article.Link == "" {
			return fmt.Errorf("article has no link")
		}

		parsedURL, err := url.Parse(article.Link)
		if err != nil {
			return fmt.Errorf("article has malformed link: %w", err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("article link must be http or https, got: %s", parsedURL.Scheme)
		}

		if err := openBrowser(parsedURL.String()); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}

		out := cmd.OutOrStdout()
		if key == "" || article.Read {
			fmt.Fprintf(out, "%s Opened: %s\n", green("v"), article.Title)
			return nil
		}
		_, err = core.SetRead(cmd.Context(), key, article.ID, true)
		switch {
		case errors.Is(err, reader.ErrConflictIgnored):
			fmt.Fprintf(out, "%s Opened: %s %s\n", green("v"), article.Title, faint("(newer unread mark kept)"))
		case err != nil:
			return fmt.Errorf("failed to mark article as read: %w", err)
		default:
			fmt.Fprintf(out, "%s Opened and marked as read: %s\n", green("v"), article.Title)
		}
		return nil
	},
}

// openBrowser opens a URL in the default browser for the current platform.
// Tests replace it.
var openBrowser = func(urlStr string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", urlStr)
	case "linux":
		cmd = exec.Command("xdg-open", urlStr)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", urlStr)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	// Reap the process asynchronously to prevent zombie processes
	go cmd.Wait()

	return nil
}

func init() {
	rootCmd.AddCommand(openCmd)
}
