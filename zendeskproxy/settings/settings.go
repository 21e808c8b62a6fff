// Package settings holds the zendesk proxy app's settings modules: Common
// for the baseline tier and AWS for deployed environments.
package settings

// Setting names written by the modules in this package.
const (
	KeyURL              = "ZENDESK_URL"
	KeyOAuthAccessToken = "ZENDESK_OAUTH_ACCESS_TOKEN"
	KeyGroupIDMapping   = "ZENDESK_GROUP_ID_MAPPING"
	KeyRequestsPerHour  = "ZENDESK_PROXY_REQUESTS_PER_HOUR"
)

// DefaultRequestsPerHour is the per-IP request budget for the proxy endpoints.
const DefaultRequestsPerHour = 50
