// Package labels builds the labels attached to every leased instance.
//
// Labels identify instances created by comfyprov in the provider console and
// let cleanup tooling find them. Values are normalized to the strictest
// provider rules (Hetzner Cloud) so the same map is valid everywhere.
package labels
