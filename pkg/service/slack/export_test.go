package slack

// Export internal functions for testing
var (
	BuildStatusChangeMessage = buildStatusChangeMessage
	TruncateToMaxBytes       = truncateToMaxBytes
)
