// Package cran provides a client for CRAN package metadata served by the
// crandb JSON service (https://crandb.r-pkg.org).
//
// [Client.FetchPackage] returns the latest DESCRIPTION fields of a
// package. Dependency fields (Depends, Imports, LinkingTo) are kept in
// the order they appear in the document; version constraints are
// discarded. [Client.Resolve] adapts the result to
// [integrations.Package].
//
// Packages shipped with R itself (License "Part of R") resolve to
// [ErrBasePackage]: they are never added to an extension list.
package cran
