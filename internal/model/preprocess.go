package model

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrUnknownFormat = errors.New("cannot identify image file")

// DecodeImage decodes JPEG, PNG, GIF, BMP or WebP bytes.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrUnknownFormat)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnknownFormat
		}
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Preprocess resizes img to size x size with bicubic sampling and flattens it
// into an RGB float32 tensor with a leading batch dimension of one. Channel
// values are the 8-bit intensities multiplied by scale.
func Preprocess(img image.Image, size int, layout string, scale float32) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bicubic)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r := float32(c.R) * scale
			g := float32(c.G) * scale
			b := float32(c.B) * scale

			pixel := y*width + x
			if layout == LayoutNCHW {
				data[pixel] = r
				data[plane+pixel] = g
				data[2*plane+pixel] = b
				continue
			}
			data[3*pixel] = r
			data[3*pixel+1] = g
			data[3*pixel+2] = b
		}
	}
	return data
}
