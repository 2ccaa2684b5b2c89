// Package artifact contains core domain types for the packaging pipeline.
//
// It defines ArchiveSource (which runtime build to fetch), Layout (the fixed
// names of the directories and files the pipeline produces), Package (where
// a packaged tree and its entry point live) and the error categories shared
// by every stage.
package artifact
