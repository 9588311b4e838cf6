// Package model defines the core data structures used throughout aaofetch.
//
// This package contains the following main types:
//   - Page: One listing page fetched during a crawl
//   - DownloadedFile: A decision document persisted to the download directory
//   - RunResult: The outcome of one crawl, including its terminal state
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, database and report packages all use these types.
package model
