// Package relocator installs a packaged tree into its final location.
//
// Relocation replaces any previous installation: the destination package
// directory is deleted before the new tree is copied in. The source tree is
// left in place.
package relocator
