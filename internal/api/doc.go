// Package api hosts the operator HTTP surface. Routes:
//   - GET /healthz for liveness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for a snapshot of the poller (seen-set, caches, counters).
//   - GET /releases/{titleID} for archived rows when the sqlite archive is on.
package api
