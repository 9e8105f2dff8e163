package config

import "time"

// Default values for configuration
const (
	// Logger defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	// Telegram defaults
	DefaultPollTimeout        = 30 * time.Second // Long-poll wait per getUpdates call
	DefaultRequestTimeout     = 45 * time.Second // Must exceed the poll timeout
	DefaultDropPendingUpdates = true             // Clean start on bot launch
	DefaultRateLimit          = 25.0             // Outbound calls per second, below Telegram's global cap
	DefaultRateBurst          = 5

	// HTTP defaults
	DefaultHTTPHost        = "0.0.0.0"
	DefaultHTTPPort        = 8080
	DefaultShutdownTimeout = 5 * time.Second

	// Welcome defaults
	DefaultDeleteAfter = 60 * time.Second
	DefaultButtonText  = "📢 Join our channel"
	DefaultButtonURL   = "https://t.me/telegram"
)

// DefaultWelcomeTemplate follows the member mention in every greeting.
const DefaultWelcomeTemplate = `, welcome to the group! 👋

📌 Please read the pinned rules before posting.
🤝 Be kind and stay on topic.
📢 News and announcements are in our channel below.`
