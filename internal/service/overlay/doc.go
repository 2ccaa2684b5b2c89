// Package overlay merges one directory tree into another.
//
// CopyTree creates every source directory under the destination and copies
// every file over it, overwriting existing files. Nothing already present in
// the destination is ever deleted.
package overlay
