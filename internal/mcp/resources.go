// ABOUTME: MCP resource providers for inkreader
// ABOUTME: Exposes read-only views of feeds, labels, unread articles, and statistics

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/inkreader/internal/reader"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	uriFeeds          = "inkreader://feeds"
	uriLabels         = "inkreader://labels"
	uriUnreadArticles = "inkreader://articles/unread"
	uriStats          = "inkreader://stats"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time      `json:"timestamp"`
	Count       int            `json:"count"`
	ResourceURI string         `json:"resource_uri"`
	Filters     map[string]any `json:"filters,omitempty"`
}

func (s *Server) registerResources() {
	s.registerFeedsResource()
	s.registerLabelsResource()
	s.registerUnreadArticlesResource()
	s.registerStatsResource()
}

func (s *Server) registerFeedsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         uriFeeds,
			Name:        "All Feeds",
			Description: "List all subscribed RSS/Atom feeds with labels, last refresh status, and error counts",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			feeds, err := s.core.ListFeeds(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list feeds: %w", err)
			}

			outputs := make([]FeedOutput, 0, len(feeds))
			for _, feed := range feeds {
				outputs = append(outputs, feedOutput(feed))
			}

			return s.resource(request, ResourceData{
				Metadata: ResourceMetadata{Count: len(outputs), ResourceURI: uriFeeds},
				Data:     outputs,
				Links: map[string]string{
					"labels":          uriLabels,
					"unread_articles": uriUnreadArticles,
					"stats":           uriStats,
				},
			})
		},
	)
}

func (s *Server) registerLabelsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         uriLabels,
			Name:        "Labels",
			Description: "Every label currently attached to at least one feed",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			labels, err := s.core.ListLabels(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list labels: %w", err)
			}

			return s.resource(request, ResourceData{
				Metadata: ResourceMetadata{Count: len(labels), ResourceURI: uriLabels},
				Data:     labels,
				Links:    map[string]string{"all_feeds": uriFeeds},
			})
		},
	)
}

func (s *Server) registerUnreadArticlesResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         uriUnreadArticles,
			Name:        "Unread Articles",
			Description: "The first page of articles unread for the server's sync key, newest first. Without a configured key every article counts as unread.",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			q := reader.ListQuery{SyncKey: s.syncKey, UnreadOnly: s.syncKey != ""}
			page, err := s.core.ListArticles(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("failed to list unread articles: %w", err)
			}

			outputs := make([]ArticleOutput, 0, len(page.Items))
			for _, v := range page.Items {
				outputs = append(outputs, articleOutput(v, false))
			}

			return s.resource(request, ResourceData{
				Metadata: ResourceMetadata{
					Count:       len(outputs),
					ResourceURI: uriUnreadArticles,
					Filters: map[string]any{
						"unread_only": q.UnreadOnly,
						"page_size":   page.Size,
						"has_more":    page.HasMore,
					},
				},
				Data: outputs,
				Links: map[string]string{
					"all_feeds": uriFeeds,
					"stats":     uriStats,
				},
			})
		},
	)
}

func (s *Server) registerStatsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         uriStats,
			Name:        "Reader Statistics",
			Description: "Overview statistics including feed and article counts, unread counts for the server's sync key, the most recent refresh, and per-feed breakdowns",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			stats, err := s.calculateStats(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to calculate stats: %w", err)
			}

			return s.resource(request, ResourceData{
				Metadata: ResourceMetadata{ResourceURI: uriStats},
				Data:     stats,
				Links: map[string]string{
					"all_feeds":       uriFeeds,
					"unread_articles": uriUnreadArticles,
				},
			})
		},
	)
}

func (s *Server) resource(request mcp.ReadResourceRequest, data ResourceData) ([]mcp.ResourceContents, error) {
	data.Metadata.Timestamp = s.core.Now()

	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

// StatsData represents the statistics summary.
type StatsData struct {
	Summary     StatsSummary `json:"summary"`
	ByFeed      []FeedStats  `json:"by_feed"`
	LastRefresh *RefreshInfo `json:"last_refresh,omitempty"`
}

// StatsSummary contains overall counts.
type StatsSummary struct {
	TotalFeeds    int  `json:"total_feeds"`
	TotalArticles int  `json:"total_articles"`
	TotalSyncKeys int  `json:"total_sync_keys"`
	UnreadCount   *int `json:"unread_count,omitempty"`
}

// FeedStats contains per-feed statistics.
type FeedStats struct {
	FeedID       string     `json:"feed_id"`
	FeedTitle    string     `json:"feed_title"`
	FeedURL      string     `json:"feed_url"`
	Labels       []string   `json:"labels"`
	ArticleCount int        `json:"article_count"`
	UnreadCount  *int       `json:"unread_count,omitempty"`
	LastFetched  *time.Time `json:"last_fetched,omitempty"`
	LastStatus   string     `json:"last_status"`
	ErrorCount   int        `json:"error_count"`
	HasErrors    bool       `json:"has_errors"`
}

// RefreshInfo names the most recently fetched feed.
type RefreshInfo struct {
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	FeedID        string     `json:"feed_id"`
	FeedTitle     string     `json:"feed_title"`
}

func (s *Server) calculateStats(ctx context.Context) (*StatsData, error) {
	overall, err := s.core.Stats(ctx, s.syncKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall stats: %w", err)
	}

	summary := StatsSummary{
		TotalFeeds:    overall.TotalFeeds,
		TotalArticles: overall.TotalArticles,
		TotalSyncKeys: overall.TotalSyncKeys,
	}
	if s.syncKey != "" {
		unread := overall.UnreadCount
		summary.UnreadCount = &unread
	}

	rows, err := s.core.FeedStats(ctx, s.syncKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed stats: %w", err)
	}

	byFeed := make([]FeedStats, 0, len(rows))
	var last *RefreshInfo

	for _, row := range rows {
		feed := row.Feed
		stat := FeedStats{
			FeedID:       feed.ID,
			FeedTitle:    feed.DisplayName(),
			FeedURL:      feed.URL,
			Labels:       feedOutput(feed).Labels,
			ArticleCount: row.ArticleCount,
			LastFetched:  feed.LastFetchedAt,
			LastStatus:   string(feed.LastStatus),
			ErrorCount:   feed.ErrorCount,
			HasErrors:    feed.LastError != nil,
		}
		if s.syncKey != "" {
			unread := row.UnreadCount
			stat.UnreadCount = &unread
		}
		byFeed = append(byFeed, stat)

		if feed.LastFetchedAt != nil {
			if last == nil || feed.LastFetchedAt.After(*last.LastFetchedAt) {
				last = &RefreshInfo{
					LastFetchedAt: feed.LastFetchedAt,
					FeedID:        feed.ID,
					FeedTitle:     feed.DisplayName(),
				}
			}
		}
	}

	return &StatsData{
		Summary:     summary,
		ByFeed:      byFeed,
		LastRefresh: last,
	}, nil
}
