// Package redis wraps the go-redis client and provides the login rate
// limiter used to throttle OAuth handshake initiations per client IP.
package redis
