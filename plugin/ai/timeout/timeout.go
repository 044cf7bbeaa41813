// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

// AI operation timeout constants.
const (
	// StreamTimeout is the timeout for streaming responses from LLM.
	StreamTimeout = 2 * time.Minute

	// ClassifyTimeout bounds a single intake classification call.
	ClassifyTimeout = 30 * time.Second

	// SearchTimeout is the timeout for one web search request.
	SearchTimeout = 20 * time.Second

	// PageFetchTimeout is the timeout for fetching a page for URL intake.
	PageFetchTimeout = 10 * time.Second

	// MaxPageBytes caps how much of a fetched page is read.
	MaxPageBytes = 1 << 20

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
