// ABOUTME: MCP tool definitions and handlers for inkreader
// ABOUTME: Implements subscription, refresh, article listing, and read-state tools over the reader core

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/inkreader/internal/content"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/reader"
	"github.com/harper/inkreader/internal/sync"
	"github.com/harper/inkreader/internal/timeutil"
	"github.com/mark3labs/mcp-go/mcp"
)

// errNoSyncKey is returned when a read-state tool has no key to work with.
var errNoSyncKey = errors.New("sync_key is required: no default key is configured")

// Input and output types for tools

type FeedOutput struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Labels        []string   `json:"labels"`
	LastStatus    string     `json:"last_status"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	ErrorCount    int        `json:"error_count"`
	ArticleCount  int        `json:"article_count"`
	UnreadCount   *int       `json:"unread_count,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ListFeedsInput struct {
	SyncKey *string `json:"sync_key,omitempty"`
}

type ListFeedsOutput struct {
	Feeds  []FeedOutput `json:"feeds"`
	Count  int          `json:"count"`
	Labels []string     `json:"labels"`
}

type AddFeedInput struct {
	URL    string   `json:"url"`
	Labels []string `json:"labels,omitempty"`
}

type FeedRefInput struct {
	Feed string `json:"feed"`
}

type RemoveFeedOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

type SetLabelsInput struct {
	Feed   string   `json:"feed"`
	Labels []string `json:"labels"`
}

type RefreshInput struct {
	Feed *string `json:"feed,omitempty"`
}

type RefreshFeedOutput struct {
	FeedID    string `json:"feed_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Inserted  int    `json:"inserted"`
	Duplicate int    `json:"duplicate"`
	Skipped   int    `json:"skipped"`
	InFlight  bool   `json:"in_flight,omitempty"`
	Error     string `json:"error,omitempty"`
}

type RefreshOutput struct {
	Feeds       int                 `json:"feeds"`
	Refreshed   int                 `json:"refreshed"`
	NotModified int                 `json:"not_modified"`
	Failed      int                 `json:"failed"`
	InFlight    int                 `json:"in_flight"`
	Inserted    int                 `json:"inserted"`
	Results     []RefreshFeedOutput `json:"results"`
	DurationMS  int64               `json:"duration_ms"`
}

type ListArticlesInput struct {
	Labels     []string `json:"labels,omitempty"`
	Feed       *string  `json:"feed,omitempty"`
	UnreadOnly bool     `json:"unread_only,omitempty"`
	SyncKey    *string  `json:"sync_key,omitempty"`
	Before     *string  `json:"before,omitempty"`
	Page       *int     `json:"page,omitempty"`
	PageSize   *int     `json:"page_size,omitempty"`
}

type ArticleOutput struct {
	ID                 string    `json:"id"`
	FeedID             string    `json:"feed_id"`
	FeedTitle          string    `json:"feed_title,omitempty"`
	Title              string    `json:"title"`
	Link               string    `json:"link,omitempty"`
	Summary            string    `json:"summary,omitempty"`
	Content            string    `json:"content,omitempty"`
	PublishedAt        time.Time `json:"published_at"`
	PublishedEstimated bool      `json:"published_estimated,omitempty"`
	Read               bool      `json:"read"`
}

type ListArticlesOutput struct {
	Articles []ArticleOutput `json:"articles"`
	Count    int             `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	HasMore  bool            `json:"has_more"`
}

type ArticleRefInput struct {
	ArticleID string  `json:"article_id"`
	SyncKey   *string `json:"sync_key,omitempty"`
}

type MarkReadOutput struct {
	ArticleID string    `json:"article_id"`
	Read      bool      `json:"read"`
	Applied   bool      `json:"applied"`
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
}

type MarkAllReadInput struct {
	Labels  []string `json:"labels,omitempty"`
	Before  *string  `json:"before,omitempty"`
	SyncKey *string  `json:"sync_key,omitempty"`
}

type MarkAllReadOutput struct {
	Marked int    `json:"marked"`
	Before string `json:"before,omitempty"`
}

type UnreadCountInput struct {
	Labels  []string `json:"labels,omitempty"`
	SyncKey *string  `json:"sync_key,omitempty"`
}

type UnreadCountOutput struct {
	SyncKey string   `json:"sync_key"`
	Labels  []string `json:"labels,omitempty"`
	Unread  int      `json:"unread"`
}

type SyncKeyInput struct {
	SyncKey *string `json:"sync_key,omitempty"`
}

type MergeHistoryInput struct {
	SyncKey *string            `json:"sync_key,omitempty"`
	States  []sync.RemoteState `json:"states"`
}

type MergeHistoryOutput struct {
	Applied int `json:"applied"`
	Ignored int `json:"ignored"`
	Missing int `json:"missing"`
}

type CleanupOutput struct {
	Deleted       int64 `json:"deleted"`
	RetentionDays int   `json:"retention_days"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListFeedsTool()
	s.registerAddFeedTool()
	s.registerRemoveFeedTool()
	s.registerSetLabelsTool()
	s.registerRefreshTool()
	s.registerListArticlesTool()
	s.registerGetArticleTool()
	s.registerMarkReadTool()
	s.registerMarkUnreadTool()
	s.registerMarkAllReadTool()
	s.registerUnreadCountTool()
	s.registerExportHistoryTool()
	s.registerMergeHistoryTool()
	s.registerCleanupTool()
}

func syncKeyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Optional 8-character sync key. Defaults to the key configured for this server. Example: 'ab12cd34'",
	}
}

func labelsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

func (s *Server) registerListFeedsTool() {
	tool := mcp.Tool{
		Name:        "list_feeds",
		Description: "List every subscribed RSS/Atom feed with its labels, last refresh status, error count, and article counts. When a sync key is available the unread count per feed is included. Also returns every label in use.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sync_key": syncKeyProperty(),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListFeeds)
}

func (s *Server) registerAddFeedTool() {
	tool := mcp.Tool{
		Name:        "add_feed",
		Description: "Subscribe to a feed. The URL may point at the feed itself or at a web page that advertises one. The feed is fetched immediately and nothing is stored if that fetch fails. Returns the created feed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The feed or site URL (http or https). Example: 'https://example.com/feed.xml'",
				},
				"labels": labelsProperty("Optional labels to file the feed under. Example: ['tech', 'go']"),
			},
			Required: []string{"url"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleAddFeed)
}

func (s *Server) registerRemoveFeedTool() {
	tool := mcp.Tool{
		Name:        "remove_feed",
		Description: "Unsubscribe from a feed. Its articles and their read states are deleted. This action cannot be undone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": map[string]interface{}{
					"type":        "string",
					"description": "Feed ID, ID prefix (at least 6 characters), or exact URL. Example: 'https://example.com/feed.xml'",
				},
			},
			Required: []string{"feed"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRemoveFeed)
}

func (s *Server) registerSetLabelsTool() {
	tool := mcp.Tool{
		Name:        "set_labels",
		Description: "Replace the labels on a feed. Labels are lowercased, trimmed, and deduplicated. Pass an empty list to clear them.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": map[string]interface{}{
					"type":        "string",
					"description": "Feed ID, ID prefix, or exact URL",
				},
				"labels": labelsProperty("The complete new set of labels. Example: ['news']"),
			},
			Required: []string{"feed", "labels"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleSetLabels)
}

func (s *Server) registerRefreshTool() {
	tool := mcp.Tool{
		Name:        "refresh",
		Description: "Fetch new articles. With a feed argument only that feed is refreshed, otherwise every feed is refreshed concurrently. Conditional requests (ETag, Last-Modified) avoid re-downloading unchanged feeds. Returns per-feed results; a failing feed does not stop the others.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": map[string]interface{}{
					"type":        "string",
					"description": "Optional feed ID, ID prefix, or URL to refresh on its own",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRefresh)
}

func (s *Server) registerListArticlesTool() {
	tool := mcp.Tool{
		Name:        "list_articles",
		Description: "List articles newest first, one page at a time. Filter by labels (any match), a single feed, unread state for a sync key, or a 'before' cutoff. Use has_more to decide whether to request the next page. Use get_article to read full content.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"labels": labelsProperty("Optional labels; articles from feeds carrying any of them are returned"),
				"feed": map[string]interface{}{
					"type":        "string",
					"description": "Optional feed ID, ID prefix, or URL",
				},
				"unread_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only articles unread for the sync key are returned",
				},
				"sync_key": syncKeyProperty(),
				"before": map[string]interface{}{
					"type":        "string",
					"description": "Only articles published before this point. Accepts 'today', 'yesterday', 'week', 'month', YYYY-MM-DD, or RFC3339",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based page number. Default: 0",
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Articles per page. Defaults to the configured page size",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListArticles)
}

func (s *Server) registerGetArticleTool() {
	tool := mcp.Tool{
		Name:        "get_article",
		Description: "Get one article with its full content converted from HTML to Markdown. Accepts a full article ID or an ID prefix of at least 6 characters.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"article_id": map[string]interface{}{
					"type":        "string",
					"description": "The article ID or ID prefix. Example: 'abc12345'",
				},
				"sync_key": syncKeyProperty(),
			},
			Required: []string{"article_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGetArticle)
}

func (s *Server) registerMarkReadTool() {
	tool := mcp.Tool{
		Name:        "mark_read",
		Description: "Mark an article as read for a sync key. The change is stamped with the current time and merged last-writer-wins, so a newer change from another device is kept and reported with applied=false.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"article_id": map[string]interface{}{
					"type":        "string",
					"description": "The article ID or ID prefix",
				},
				"sync_key": syncKeyProperty(),
			},
			Required: []string{"article_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMarkRead)
}

func (s *Server) registerMarkUnreadTool() {
	tool := mcp.Tool{
		Name:        "mark_unread",
		Description: "Mark an article as unread for a sync key. Follows the same last-writer-wins rule as mark_read.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"article_id": map[string]interface{}{
					"type":        "string",
					"description": "The article ID or ID prefix",
				},
				"sync_key": syncKeyProperty(),
			},
			Required: []string{"article_id"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMarkUnread)
}

func (s *Server) registerMarkAllReadTool() {
	tool := mcp.Tool{
		Name:        "mark_all_read",
		Description: "Mark every unread article as read for a sync key, optionally limited to labels and to articles published before a cutoff. Returns how many articles changed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"labels": labelsProperty("Optional labels to limit the operation to"),
				"before": map[string]interface{}{
					"type":        "string",
					"description": "Optional cutoff. Accepts 'today', 'yesterday', 'week', 'month', YYYY-MM-DD, or RFC3339. Example: 'yesterday'",
				},
				"sync_key": syncKeyProperty(),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMarkAllRead)
}

func (s *Server) registerUnreadCountTool() {
	tool := mcp.Tool{
		Name:        "unread_count",
		Description: "Count unread articles for a sync key, optionally limited to feeds carrying any of the given labels.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"labels":   labelsProperty("Optional labels to count within"),
				"sync_key": syncKeyProperty(),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleUnreadCount)
}

func (s *Server) registerExportHistoryTool() {
	tool := mcp.Tool{
		Name:        "export_history",
		Description: "Export the complete reading history of a sync key as a JSON document that another device can merge with merge_history.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sync_key": syncKeyProperty(),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleExportHistory)
}

func (s *Server) registerMergeHistoryTool() {
	tool := mcp.Tool{
		Name:        "merge_history",
		Description: "Merge reading history exported from another device. Each state wins only if its updated_at is not older than the local one. Articles this device does not have are counted as missing.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sync_key": syncKeyProperty(),
				"states": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"article_id": map[string]interface{}{"type": "string"},
							"read":       map[string]interface{}{"type": "boolean"},
							"updated_at": map[string]interface{}{"type": "string", "format": "date-time"},
						},
						"required": []string{"article_id", "read", "updated_at"},
					},
					"description": "States as produced by export_history",
				},
			},
			Required: []string{"states"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMergeHistory)
}

func (s *Server) registerCleanupTool() {
	tool := mcp.Tool{
		Name:        "cleanup",
		Description: "Delete articles older than the configured retention window, along with their read states. Returns how many articles were deleted.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleCleanup)
}

// Handler implementations

func (s *Server) handleListFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListFeedsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key := s.optionalKey(input.SyncKey)

	rows, err := s.core.FeedStats(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	labels, err := s.core.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	feeds := make([]FeedOutput, 0, len(rows))
	for _, row := range rows {
		out := feedOutput(row.Feed)
		out.ArticleCount = row.ArticleCount
		if key != "" {
			unread := row.UnreadCount
			out.UnreadCount = &unread
		}
		feeds = append(feeds, out)
	}

	return jsonResult(ListFeedsOutput{Feeds: feeds, Count: len(feeds), Labels: labels})
}

func (s *Server) handleAddFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AddFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, fmt.Errorf("url is required")
	}

	feed, err := s.core.AddFeed(ctx, input.URL, input.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to add feed: %w", err)
	}
	return jsonResult(feedOutput(feed))
}

func (s *Server) handleRemoveFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FeedRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	feed, err := s.core.RemoveFeed(ctx, input.Feed)
	if err != nil {
		return nil, fmt.Errorf("failed to remove feed: %w", err)
	}

	return jsonResult(RemoveFeedOutput{
		Success: true,
		Message: fmt.Sprintf("Feed '%s' and all its articles successfully removed", feed.DisplayName()),
		ID:      feed.ID,
		URL:     feed.URL,
	})
}

func (s *Server) handleSetLabels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SetLabelsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	feed, err := s.core.SetFeedLabels(ctx, input.Feed, input.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to set labels: %w", err)
	}
	return jsonResult(feedOutput(feed))
}

func (s *Server) handleRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RefreshInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if input.Feed != nil && *input.Feed != "" {
		outcome, err := s.core.RefreshFeed(ctx, *input.Feed)
		var fetchErr *reader.FetchError
		if err != nil && !errors.As(err, &fetchErr) {
			return nil, fmt.Errorf("failed to refresh feed: %w", err)
		}
		// A fetch failure is part of the report, not a tool error.
		out := RefreshOutput{Feeds: 1, Results: []RefreshFeedOutput{refreshFeedOutput(outcome)}}
		switch {
		case outcome.Err != nil:
			out.Failed = 1
		case outcome.Status == models.StatusNotModified:
			out.NotModified = 1
		default:
			out.Refreshed = 1
			out.Inserted = outcome.Inserted
		}
		return jsonResult(out)
	}

	report, err := s.core.RefreshAllFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh feeds: %w", err)
	}

	out := RefreshOutput{
		Feeds:       report.Feeds,
		Refreshed:   report.Refreshed,
		NotModified: report.NotModified,
		Failed:      report.Failed,
		InFlight:    report.InFlight,
		Inserted:    report.Inserted,
		Results:     make([]RefreshFeedOutput, 0, len(report.Outcomes)),
		DurationMS:  report.Duration.Milliseconds(),
	}
	for _, o := range report.Outcomes {
		out.Results = append(out.Results, refreshFeedOutput(o))
	}
	return jsonResult(out)
}

func (s *Server) handleListArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListArticlesInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	q := reader.ListQuery{
		Labels:     input.Labels,
		UnreadOnly: input.UnreadOnly,
		SyncKey:    s.optionalKey(input.SyncKey),
	}
	if input.Feed != nil {
		q.FeedRef = *input.Feed
	}
	if input.Page != nil {
		q.Page = *input.Page
	}
	if input.PageSize != nil {
		q.PageSize = *input.PageSize
	}
	if input.Before != nil && *input.Before != "" {
		before, err := timeutil.ParseCutoff(*input.Before, s.core.Now())
		if err != nil {
			return nil, fmt.Errorf("invalid before: %w", err)
		}
		q.Before = &before
	}

	page, err := s.core.ListArticles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]ArticleOutput, 0, len(page.Items))
	for _, v := range page.Items {
		articles = append(articles, articleOutput(v, false))
	}

	return jsonResult(ListArticlesOutput{
		Articles: articles,
		Count:    len(articles),
		Page:     page.Page,
		PageSize: page.Size,
		HasMore:  page.HasMore,
	})
}

func (s *Server) handleGetArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ArticleRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	view, err := s.core.GetArticle(ctx, input.ArticleID, s.optionalKey(input.SyncKey))
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return jsonResult(articleOutput(view, true))
}

func (s *Server) handleMarkRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setRead(ctx, req, true)
}

func (s *Server) handleMarkUnread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setRead(ctx, req, false)
}

func (s *Server) setRead(ctx context.Context, req mcp.CallToolRequest, read bool) (*mcp.CallToolResult, error) {
	var input ArticleRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key, err := s.requireKey(input.SyncKey)
	if err != nil {
		return nil, err
	}

	outcome, err := s.core.SetRead(ctx, key, input.ArticleID, read)
	if err != nil && !errors.Is(err, reader.ErrConflictIgnored) {
		return nil, fmt.Errorf("failed to update read state: %w", err)
	}

	out := MarkReadOutput{
		ArticleID: outcome.State.ArticleID,
		Read:      outcome.State.Read,
		Applied:   outcome.Applied,
		UpdatedAt: outcome.State.UpdatedAt,
	}
	if !outcome.Applied {
		out.Message = "a newer change from another device was kept"
	}
	return jsonResult(out)
}

func (s *Server) handleMarkAllRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input MarkAllReadInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key, err := s.requireKey(input.SyncKey)
	if err != nil {
		return nil, err
	}

	var out MarkAllReadOutput
	var before *time.Time
	if input.Before != nil && *input.Before != "" {
		t, err := timeutil.ParseCutoff(*input.Before, s.core.Now())
		if err != nil {
			return nil, fmt.Errorf("invalid before: %w", err)
		}
		before = &t
		out.Before = t.Format(time.RFC3339)
	}

	n, err := s.core.MarkAllRead(ctx, key, input.Labels, before)
	if err != nil {
		return nil, fmt.Errorf("failed to mark articles as read: %w", err)
	}
	out.Marked = n
	return jsonResult(out)
}

func (s *Server) handleUnreadCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input UnreadCountInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key, err := s.requireKey(input.SyncKey)
	if err != nil {
		return nil, err
	}

	n, err := s.core.UnreadCount(ctx, key, input.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread articles: %w", err)
	}
	normalized, _ := sync.NormalizeKey(key)
	return jsonResult(UnreadCountOutput{SyncKey: normalized, Labels: models.NormalizeLabels(input.Labels), Unread: n})
}

func (s *Server) handleExportHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SyncKeyInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key, err := s.requireKey(input.SyncKey)
	if err != nil {
		return nil, err
	}

	history, err := s.core.ExportHistory(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to export history: %w", err)
	}
	if history.States == nil {
		history.States = []sync.RemoteState{}
	}
	return jsonResult(history)
}

func (s *Server) handleMergeHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input MergeHistoryInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	key, err := s.requireKey(input.SyncKey)
	if err != nil {
		return nil, err
	}

	res, err := s.core.MergeHistory(ctx, key, input.States)
	if err != nil {
		return nil, fmt.Errorf("failed to merge history: %w", err)
	}
	return jsonResult(MergeHistoryOutput{Applied: res.Applied, Ignored: res.Ignored, Missing: res.Missing})
}

func (s *Server) handleCleanup(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.core.CleanupOldArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up articles: %w", err)
	}
	return jsonResult(CleanupOutput{Deleted: n, RetentionDays: s.core.RetentionDays()})
}

// Helpers

// optionalKey returns the requested key, falling back to the server default.
func (s *Server) optionalKey(k *string) string {
	if k != nil && strings.TrimSpace(*k) != "" {
		return *k
	}
	return s.syncKey
}

func (s *Server) requireKey(k *string) (string, error) {
	key := s.optionalKey(k)
	if key == "" {
		return "", errNoSyncKey
	}
	return key, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func feedOutput(f *models.Feed) FeedOutput {
	labels := f.Labels
	if labels == nil {
		labels = []string{}
	}
	return FeedOutput{
		ID:            f.ID,
		URL:           f.URL,
		Title:         f.DisplayName(),
		Labels:        labels,
		LastStatus:    string(f.LastStatus),
		LastFetchedAt: f.LastFetchedAt,
		LastError:     f.LastError,
		ErrorCount:    f.ErrorCount,
		CreatedAt:     f.CreatedAt,
	}
}

func articleOutput(v *models.ArticleView, withContent bool) ArticleOutput {
	out := ArticleOutput{
		ID:                 v.ID,
		FeedID:             v.FeedID,
		FeedTitle:          v.FeedTitle,
		Title:              v.Title,
		Link:               v.Link,
		Summary:            v.Summary,
		PublishedAt:        v.PublishedAt,
		PublishedEstimated: v.PublishedEstimated,
		Read:               v.Read,
	}
	if withContent {
		body := v.Content
		if body == "" {
			body = v.Summary
		}
		out.Content = content.ToMarkdown(body)
	}
	return out
}

func refreshFeedOutput(o reader.FeedOutcome) RefreshFeedOutput {
	out := RefreshFeedOutput{
		FeedID:    o.FeedID,
		URL:       o.URL,
		Status:    string(o.Status),
		Inserted:  o.Inserted,
		Duplicate: o.Duplicate,
		Skipped:   o.Skipped,
		InFlight:  o.InFlight,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}
