// Package viewer provides the embedded default viewer page for SnapView.
//
// This package uses Go's embed directive to include the auto-refreshing
// snapshot page at compile time, so the server runs with zero external files.
// A custom on-disk template (snapview.WithTemplateFile) takes precedence; the
// embedded page is the fallback.
//
// The page carries the same literal placeholder tokens as a user-supplied
// template: _TITLE_, _DELAY_SECS_, _NAME_, _WIDTH_, _HEIGHT_, _IMAGE_FNAME_.
package viewer

import "embed"

// Assets is an embedded filesystem containing the default viewer page.
//
// The filesystem structure is:
//
//	assets/
//	  viewer.html    - Auto-refreshing snapshot page with inline JavaScript
//
// Assets is consumed by the internal render package.
//
//go:embed assets/*
var Assets embed.FS
