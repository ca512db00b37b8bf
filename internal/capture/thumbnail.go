package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/nfnt/resize"
)

const (
	thumbnailWidth  = 400
	thumbnailHeight = 300
)

// Thumbnail renders a fixed-aspect 400x300 JPEG preview from raw
// raster data. The source is cover-fitted: scaled until both
// dimensions fill the box, then cropped. Vertical crops keep the top
// of the page, which is where a capture's identity lives.
func Thumbnail(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imgWidth := img.Bounds().Dx()
	imgHeight := img.Bounds().Dy()
	if imgWidth == 0 || imgHeight == 0 {
		return nil, fmt.Errorf("image has empty dimensions")
	}

	var resized image.Image
	if imgWidth*thumbnailHeight >= imgHeight*thumbnailWidth {
		// Wider than 4:3. Fill the height, crop the sides.
		resized = resize.Resize(0, thumbnailHeight, img, resize.Lanczos3)
	} else {
		// Taller than 4:3, the common case for page captures. Fill the
		// width, crop the bottom.
		resized = resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)
	}

	offsetX := (resized.Bounds().Dx() - thumbnailWidth) / 2
	if offsetX < 0 {
		offsetX = 0
	}

	canvas := image.NewRGBA(image.Rect(0, 0, thumbnailWidth, thumbnailHeight))
	draw.Draw(canvas, canvas.Bounds(), resized, image.Pt(offsetX, 0), draw.Src)

	var buf bytes.Buffer
	// Quality 75 is a good balance of size and fidelity.
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// imageDimensions reads the pixel size of an encoded image without
// decoding the full raster.
func imageDimensions(imageData []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
