// Package bioconductor provides a read-only index of one Bioconductor
// release.
//
// Bioconductor has no per-package metadata API comparable to crandb.
// Instead each release publishes a PACKAGES file (Debian control format)
// per repository view:
//
//	{base}/{release}/bioc/src/contrib/PACKAGES
//	{base}/{release}/data/annotation/src/contrib/PACKAGES
//	{base}/{release}/data/experiment/src/contrib/PACKAGES
//
// The first lookup on a [Client] downloads all three views and builds the
// index; later lookups only read it. Titles come from the optional
// packages.json companion files. A name missing from the index is
// [integrations.ErrNotFound], which lets callers fall back to CRAN.
package bioconductor
