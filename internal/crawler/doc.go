// Package crawler walks the paginated decision listing and stores every
// document it links to.
//
// # Architecture
//
// The Controller drives the crawl page by page. For each listing page it asks
// a PageFetcher for the page, hands every document link to the Downloader
// and decides whether to continue:
//
//   - the page index reached the safety cap (max-pages)
//   - the page could not be fetched (fetch-failed)
//   - several consecutive pages had no document links (no-documents)
//   - the page had no "next page" element (no-next-page)
//
// Design decision: The crawl is strictly sequential. One page is fetched,
// its documents are downloaded in document order, then the next page is
// requested. The only suspension points are the polite delays of the Pacer.
//
// # Components
//
//   - Controller: the crawl loop and its stop decisions
//   - Listing: fetches and decodes one listing page
//   - Harvester: extracts document links from a ParsedDocument
//   - Downloader: idempotent, crash-safe storage of one document
//   - Pacer: random polite delays on top of a global request-rate floor
//   - RobotsPolicy: optional robots.txt gate
//
// # Usage
//
//	ctrl := crawler.NewControllerFromConfig(cfg, client, logger)
//	result, err := ctrl.Run(ctx, cfg.MaxPages)
//
// # Idempotence
//
// A document is identified by the filename derived from its URL. If that
// file exists in the download directory the document is not requested
// again. New files are written to a temporary file in the same directory
// and published with a hard link, so an interrupted download never leaves
// a truncated file under the final name.
package crawler
