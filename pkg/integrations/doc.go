// Package integrations provides HTTP clients for the package registries an
// extension list draws from.
//
// Each registry has its own subpackage:
//
//   - [cran]: CRAN metadata through the crandb JSON service
//   - [bioconductor]: Bioconductor release index built from PACKAGES files
//   - [pypi]: the Python Package Index JSON API
//
// # Client Pattern
//
// Registry clients embed the shared [Client] and follow one pattern:
//
//	c := pypi.NewClient(backend, 0, pypi.DefaultURL, marker.NewEnvironment("3.11"))
//	info, err := c.FetchPackage(ctx, "requests", false) // registry-shaped metadata
//	pkg, err := c.Resolve(ctx, "requests", "2.31.0")    // registry-neutral [Package]
//
// [Client] handles request headers, response caching through a
// [cache.Cache], retries of transient failures via [httputil.Retry] and
// status mapping: 404 is [ErrNotFound], network failures, 429 and 5xx are
// retried and finally reported as [ErrNetwork].
//
// [cran]: github.com/extsync/easyupdate/pkg/integrations/cran
// [bioconductor]: github.com/extsync/easyupdate/pkg/integrations/bioconductor
// [pypi]: github.com/extsync/easyupdate/pkg/integrations/pypi
// [cache.Cache]: github.com/extsync/easyupdate/pkg/cache.Cache
// [httputil.Retry]: github.com/extsync/easyupdate/pkg/httputil.Retry
package integrations
