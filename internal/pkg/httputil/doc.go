// Package httputil holds the JSON response and request-decode helpers the
// API handlers share, so every endpoint emits the same error envelope.
package httputil
