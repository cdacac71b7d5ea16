// Package middleware provides HTTP middleware for the block editor server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - gzip response compression that leaves the player event stream alone
//   - Prometheus request metrics labelled by route template
package middleware
