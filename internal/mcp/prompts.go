// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides workflow templates for reading, catching up, and curating feeds

package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.registerDailyDigestPrompt()
	s.registerCatchUpPrompt()
	s.registerCurateFeedsPrompt()
}

func (s *Server) registerDailyDigestPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "daily-digest",
			Description: "Summarize what arrived in your feeds since yesterday, optionally within one label",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "label",
					Description: "Only summarize feeds carrying this label",
					Required:    false,
				},
			},
		},
		s.handleDailyDigest,
	)
}

//nolint:funlen // Prompt handlers contain large template strings
func (s *Server) handleDailyDigest(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	label := strings.TrimSpace(req.Params.Arguments["label"])
	scope := "all feeds"
	labelsArg := ""
	if label != "" {
		scope = fmt.Sprintf("feeds labelled '%s'", label)
		labelsArg = fmt.Sprintf(`, labels=["%s"]`, label)
	}

	template := fmt.Sprintf(`# Daily Digest

## Overview
Review and summarize the newest articles across %[1]s so you are caught up in a few minutes.

## Workflow Steps

### Step 1: Refresh
Call the **refresh** tool with no arguments. Note any feeds reported as failed; they keep their old articles.

### Step 2: Check the Backlog
Call **unread_count**%[2]s to see how many articles are waiting.
Read the inkreader://stats resource for a per-feed breakdown.

### Step 3: Scan Unread Articles
Call **list_articles** with unread_only=true%[2]s.
Pages are newest first. Keep requesting page=1, page=2, ... while has_more is true.

### Step 4: Read What Matters
For articles whose title or summary looks important, call **get_article** to read the full content.

### Step 5: Summarize
Group articles by theme and write:
- a three sentence overview of the day
- the key articles with their links
- anything that needs action

### Step 6: Mark as Read
Call **mark_all_read** with before="today"%[2]s to clear everything published before today, or **mark_read** for individual articles you covered.

## Tips
- Read state is per sync key and merges across devices last-writer-wins, so marking here also clears it on your other devices after they merge history.
- Use **mark_unread** to keep an article around for later.
`, scope, labelsArg)

	return promptResult("Daily digest workflow for "+scope, template), nil
}

func (s *Server) registerCatchUpPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "catch-up",
			Description: "Catch up on missed articles from recent days when you've fallen behind on your feeds",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "days",
					Description: "Number of days to catch up on (default: 7)",
					Required:    false,
				},
			},
		},
		s.handleCatchUp,
	)
}

//nolint:funlen // Prompt handlers contain large template strings
func (s *Server) handleCatchUp(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	days := 7
	if d := strings.TrimSpace(req.Params.Arguments["days"]); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("days must be a positive integer, got %q", d)
		}
		days = n
	}

	cutoff := s.core.Now().AddDate(0, 0, -days).Format("2006-01-02")

	template := fmt.Sprintf(`# Catch Up on Missed Articles

## Overview
Work through the backlog of the past %[1]d days without reading every item. Anything published before %[2]s is treated as stale.

## Workflow Steps

### Step 1: Assess the Backlog
Read inkreader://stats. Note the total unread count and which feeds contribute the most.

### Step 2: Clear Stale Articles
Call **mark_all_read** with before="%[2]s". Report how many articles were marked.

### Step 3: Triage by Label
Call **list_feeds** to see labels. For each label, call **list_articles** with unread_only=true and that label.
Sort articles into:
- must read: call **get_article** and summarize
- skim: mention the title and link
- skip: call **mark_read**

### Step 4: Page Through
Request further pages while has_more is true. Stop when the remaining articles are all skips, then call **mark_all_read** for that label.

### Step 5: Report
Summarize the most important articles from the period and list any feeds that were consistently noisy so they can be curated later.
`, days, cutoff)

	return promptResult(fmt.Sprintf("Catch-up workflow for the last %d days", days), template), nil
}

func (s *Server) registerCurateFeedsPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "curate-feeds",
			Description: "Review your feed subscriptions and prune broken or low-value feeds",
			Arguments:   []mcp.PromptArgument{},
		},
		s.handleCurateFeeds,
	)
}

//nolint:funlen // Prompt handlers contain large template strings
func (s *Server) handleCurateFeeds(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Curate Feeds

## Overview
Keep the subscription list healthy: remove feeds that fail, relabel feeds that drifted, and drop ones nobody reads.

## Workflow Steps

### Step 1: Analyze Feed Health
Read inkreader://stats. For each feed note article_count, unread_count, last_status, and error_count.

### Step 2: Find Broken Feeds
Feeds with last_status "error" and a growing error_count are failing. Call **refresh** with the feed to retry once. If it still fails, suggest **remove_feed** or finding the site's new feed URL and calling **add_feed**.

### Step 3: Find Ignored Feeds
Feeds whose unread_count is close to article_count are not being read. Suggest removing them or moving them to a low-priority label with **set_labels**.

### Step 4: Review Labels
Read inkreader://labels. Merge labels that mean the same thing by calling **set_labels** on the affected feeds.

### Step 5: Clean Up
Call **cleanup** to drop articles past the retention window.

### Step 6: Report
List every change made and every suggestion left for the user to decide.
`

	return promptResult("Feed curation workflow", template), nil
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
