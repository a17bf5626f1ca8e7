// Package integration contains the provider integration bounded context.
// It describes how StorePulse talks to the two external platforms it aggregates.
//
// Key concepts:
//   - CommercePlatform: Port interface for the storefront platform (shop, orders, inventory)
//   - TrafficPlatform: Port interface for the analytics platform (sessions, channels, product views)
//   - FailureKind: Classification of every provider failure (no credential, auth rejected, rate limited, ...)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
