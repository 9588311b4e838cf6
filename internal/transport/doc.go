// Package transport provides the HTTP client used for every request aaofetch
// makes: listing pages, robots.txt and documents.
//
// The client sends browser-like headers on every request, applies a
// per-request timeout covering the whole body transfer, keeps cookies across
// requests and can optionally route through a SOCKS5 proxy.
package transport
