// Package resolve walks the dependency graph of a recipe's extensions and
// decides what happens to every package it meets.
//
// # Overview
//
// [Engine.Resolve] expands the declared extensions in recipe order. Each
// package is looked up once through a [Registry] (a [Chain] of registries
// for R), its dependency edges are expanded depth first in registry
// order, and it receives exactly one terminal [Decision]:
//
//   - [Duplicate]: provided by a build dependency (the baseline)
//   - [Processed]: already decided earlier in the walk
//   - [Reordered]: met again while still being expanded (a cycle)
//   - [Keep], [Update]: declared, with an equal or newer registry version
//   - [Add]: transitive dependency missing from the recipe
//   - [Remove]: transitive dependency no registry could answer for
//
// # Concurrency
//
// The walk is sequential, so [Run.Records] and [Run.Declared] are the same
// for identical registry answers. Before a node's edges are expanded the
// lookups of its siblings are started on goroutines bounded by
// [Options.Workers]; the walk then waits on those results in order. A name
// is never queried twice in one run.
//
// # Ecosystems
//
// [R] and [Python] describe name normalization and the packages that are
// never expanded (base R, Python standard-library backports).
package resolve
