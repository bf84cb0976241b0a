// Package patch rewrites the exts_list of an easyconfig without parsing
// the rest of the document.
//
// [Apply] walks the declared entries of a [Plan] in order. Each entry is
// found by searching for its quoted name at or after the write cursor;
// the bytes before it are copied, the version literal is substituted for
// updates (and the entry's checksums option dropped), removed entries are
// cut out, and new entries are appended before the closing bracket of the
// list. Every byte of the source ends up in exactly one [Span].
//
// When an anchor cannot be found Apply fails with an [*AnchorError] and
// produces no output.
package patch
