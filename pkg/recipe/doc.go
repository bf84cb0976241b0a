// Package recipe loads EasyBuild easyconfig files.
//
// An easyconfig is a Python-syntax file of top-level assignments. [Load]
// evaluates it with a Starlark interpreter seeded with the EasyBuild
// constants (SOURCE_TAR_GZ, SYSTEM, SHLIB_EXT, ...); identifiers the file
// uses without defining are predeclared as their own names and the file
// is evaluated again, so recipes referencing newer constants still load.
//
// The resulting [Document] carries what the resolver and the patch engine
// need: the declared exts_list entries in order, with both their
// evaluated and raw spellings, the language ecosystem, the pinned Python
// and Bioconductor versions and the original source bytes.
//
// [Locator] finds the easyconfigs of a recipe's build dependencies on the
// robot search path and collects the extension names they already
// provide (the baseline).
package recipe
