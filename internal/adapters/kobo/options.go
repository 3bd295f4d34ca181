package kobo

import "time"

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithServerURL sets the Kobo server base URL.
func WithServerURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.serverURL = url
		}
	}
}

// WithToken sets the API token used for authentication.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetryCount sets how many times failed requests are retried.
func WithRetryCount(count int) Option {
	return func(c *Client) {
		if count >= 0 {
			c.retryCount = count
		}
	}
}
