// Package api hosts the operator HTTP server that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for liveness and storage readiness.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for the live outcome tally of the running crawl.
package api
