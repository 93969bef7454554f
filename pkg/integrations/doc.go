// Package integrations provides HTTP clients for the Rust registry services.
//
// # Overview
//
// Published packages can be analysed without a local checkout: crates.io
// supplies the package descriptor and docs.rs the raw documentation tree.
//
//   - [crates]: crates.io releases and docs.rs rustdoc JSON
//
// # Client Pattern
//
//	client := crates.NewClient(c, 24*time.Hour)
//	rel, err := client.FetchRelease(ctx, "serde", "latest", false) // false = use cache
//
// Clients handle:
//   - HTTP requests with retry on network errors and 5xx responses
//   - Response caching through any [cache.Cache] backend
//   - API-specific parsing and normalization
//
// # Shared Infrastructure
//
// The [Client] type provides the shared HTTP functionality.
//
// [crates]: github.com/matzehuels/crateapi/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/crateapi/pkg/cache.Cache
package integrations
