// Package handlers contains the HTTP handlers of the bite index API.
//
// Each handler depends on a small locally defined service interface so it can
// be tested with hand-written mocks, and exposes RegisterRoutes for mounting
// under /v1:
//   - GET  /v1/fish-types
//   - GET  /v1/bite-index, GET /v1/bite-index/series
//   - POST /v1/ratings, GET /v1/ratings/limits
//   - GET  /v1/weather
//   - GET  /v1/reservoir/boundary
package handlers
