// Package middleware provides HTTP middleware for the media picker command
// surface.
//
// It includes:
//   - Request IDs (X-Request-ID), generated when the client sends none
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - A server span per request
//   - gzip compression of JSON responses
package middleware
