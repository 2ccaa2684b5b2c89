// Package assembler builds the packaged tree from a runtime and an application project.
package assembler
