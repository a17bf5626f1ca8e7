// Package oauth keeps provider access tokens usable.
//
// TokenManager owns the refresh lifecycle of traffic tokens: it serves stored tokens while
// they are fresh, refreshes them under a per-merchant lock and persists the result with a
// compare-and-set on the connection's token version. Execute wraps a provider call and retries
// it exactly once after the provider rejected the token.
package oauth
