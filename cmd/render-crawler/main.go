// Package main provides the render-crawler CLI.
//
// Usage:
//
//	render-crawler crawl --url https://example.com/docs/ --match 'https://example.com/docs/**'
//	render-crawler serve
//	render-crawler mcp-server --transport stdio
//
// See --help for all available options.
package main

func main() {
	Execute()
}
