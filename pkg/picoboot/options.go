package picoboot

import "time"

// Config holds the Programmer configuration.
type Config struct {
	// ProgressCallback is called to report progress (optional).
	ProgressCallback ProgressCallback

	// SkipBlankPages skips pages without any data loaded from the image.
	// Page 0 is always written.
	SkipBlankPages bool

	// PageDelay is slept after each page, for slow links.
	PageDelay time.Duration
}

func defaultConfig() Config {
	return Config{SkipBlankPages: true}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback to track programming progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithSkipBlankPages enables or disables skipping of blank pages.
// Default is true.
func WithSkipBlankPages(skip bool) Option {
	return func(c *Config) {
		c.SkipBlankPages = skip
	}
}

// WithPageDelay sets the delay after each page.
func WithPageDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.PageDelay = delay
		}
	}
}
