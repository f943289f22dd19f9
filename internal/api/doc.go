// Package api exposes the agent over HTTP. Each POST to
// /api/v1/invocations is one isolated invocation: the request body becomes
// the host input buffer and the single agent output becomes the response.
// The server also serves liveness and Prometheus metrics endpoints and writes
// an audit record for every request.
package api
