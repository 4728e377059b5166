// Package sales contains the Sales bounded context.
// This context models revenue data pulled from external sales platforms
// and the aggregations computed over it.
//
// Key concepts:
//   - SalesProvider: Port interface for reading orders, products and the store from one platform
//   - Order, Product, Store: Normalized value objects produced by provider adapters
//   - SalesMetrics: Time-windowed and per-product rollups computed by Compute
//   - Snapshot: The merged, provider-independent view handed to readers
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package sales
