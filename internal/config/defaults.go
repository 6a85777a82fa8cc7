package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Server defaults
	DefaultServerAddr            = ":8080"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	// Database defaults
	DefaultDBPath = "replydesk.db"

	// Meta Graph API defaults
	DefaultMetaBaseURL        = "https://graph.facebook.com"
	DefaultMetaAPIVersion     = "v19.0"
	DefaultMetaRequestTimeout = 30 * time.Second

	// Scheduler defaults
	DefaultMaintenanceSchedule = "0 3 * * *" // daily at 03:00
)
