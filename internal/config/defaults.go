// ABOUTME: Centralized configuration defaults for inkreader
// ABOUTME: Contains magic numbers and hardcoded values for the reader core, display and storage

package config

import "time"

// Reader core settings
const (
	DefaultArticlesPerPage  = 5
	DefaultRetentionDays    = 90
	DefaultRefreshInterval  = time.Hour
	DefaultCleanupInterval  = 24 * time.Hour
	DefaultFetchConcurrency = 4
)

// HTTP settings
const (
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultHostInterval = time.Second
)

// Display settings
const (
	DisplayIDLength = 8
	SeparatorWidth  = 60
	DateFormatShort = "02 Jan 06 15:04 MST"
	DateFormatLong  = "Mon, 02 Jan 2006 15:04 MST"
)

// Storage settings
const (
	DefaultDirPerms  = 0700
	DefaultFilePerms = 0600
)

// OPML settings
const (
	OPMLVersion = "2.0"
)
