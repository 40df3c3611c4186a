// Package viewer renders the HTML page that shows a device image.
//
// The page template and its stylesheet are embedded into the binary with
// go:embed. Page renders the template; Assets serves the static files with
// no-cache headers.
package viewer
