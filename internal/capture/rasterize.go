package capture

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Rasterize produces the PNG raster for the page in its current
// state. Viewport shots deliberately carry no clip region: after
// trigger clicks and form steps the page may be scrolled, and the
// shot should show what the viewport shows, not the document origin.
func Rasterize(page *rod.Page, fullPage bool) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	}
	data, err := page.Screenshot(fullPage, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}
