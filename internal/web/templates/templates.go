// Package templates holds the HTML fragments served to browser clients.
//
// Components are written in .templ files; regenerate with `templ generate`.
package templates

// UploadStatus is shown on the banner page.
type UploadStatus struct {
	Active        int
	MaxConcurrent int
}
