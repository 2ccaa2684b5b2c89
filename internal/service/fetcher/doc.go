// Package fetcher downloads a runtime archive and extracts it.
//
// A Fetcher renders the download URL from a template, streams the response
// into the output directory, wipes any previous extraction and unpacks the
// ZIP archive in its place. Failures are reported as artifact.ErrNetwork,
// artifact.ErrArchive or artifact.ErrFilesystem.
package fetcher
