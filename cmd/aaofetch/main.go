// Package main provides the entry point for the aaofetch CLI.
//
// aaofetch downloads the USCIS AAO non-precedent decision PDFs from the
// paginated listing into a local directory, skipping files already present.
//
// Usage:
//
//	aaofetch
//	aaofetch --max-pages 5 --dir ./decisions
//	aaofetch history
//
// See --help for all available options.
package main

// main is the entry point for aaofetch.
func main() {
	Execute()
}
