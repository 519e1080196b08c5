package render

import (
	"fmt"
	"html"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Placeholder tokens substituted verbatim into the viewer template.
const (
	placeholderTitle  = "_TITLE_"
	placeholderDelay  = "_DELAY_SECS_"
	placeholderName   = "_NAME_"
	placeholderWidth  = "_WIDTH_"
	placeholderHeight = "_HEIGHT_"
	placeholderImage  = "_IMAGE_FNAME_"
)

// embeddedTemplate is the path of the default page inside the assets FS.
const embeddedTemplate = "assets/viewer.html"

// Page holds the values substituted into the viewer template for one request.
type Page struct {
	// CameraName is the display name; the page title is derived from it.
	CameraName string

	// DelaySecs is the effective refresh delay in seconds for this request.
	DelaySecs float64

	// Width and Height are the frame dimensions captured at bootstrap.
	Width  int
	Height int

	// ImagePath is the URL path of the raw snapshot endpoint.
	ImagePath string
}

// Renderer builds viewer HTML by placeholder substitution.
//
// When a template file path is configured, the file is re-read on every
// [Renderer.Render] call so edits show up without a restart. When the path is
// empty, the embedded default page is used instead.
type Renderer struct {
	path   string
	assets fs.FS
}

// New creates a [Renderer].
//
// path is the on-disk template file; empty means serve the embedded default
// from assets (may not be nil in that case).
func New(path string, assets fs.FS) *Renderer {
	return &Renderer{path: path, assets: assets}
}

// Render substitutes the page values into the template and returns the HTML.
//
// Returns an error if the template source cannot be read. Name and title are
// HTML-escaped; the remaining values are numeric or fixed paths.
func (r *Renderer) Render(p Page) (string, error) {
	raw, err := r.source()
	if err != nil {
		return "", fmt.Errorf("read viewer template: %w", err)
	}

	title := p.CameraName + " camera"
	rep := strings.NewReplacer(
		placeholderTitle, html.EscapeString(title),
		placeholderDelay, FormatDelay(p.DelaySecs),
		placeholderName, html.EscapeString(p.CameraName),
		placeholderWidth, strconv.Itoa(p.Width),
		placeholderHeight, strconv.Itoa(p.Height),
		placeholderImage, p.ImagePath,
	)
	return rep.Replace(string(raw)), nil
}

func (r *Renderer) source() ([]byte, error) {
	if r.path != "" {
		return os.ReadFile(r.path)
	}
	return fs.ReadFile(r.assets, embeddedTemplate)
}

// FormatDelay renders a delay in seconds the way it appears in URLs and in
// the template: shortest decimal form ("1", "2.5", "0.25").
func FormatDelay(secs float64) string {
	return strconv.FormatFloat(secs, 'f', -1, 64)
}
