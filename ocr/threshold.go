package ocr

import (
	"image"
	"image/color"
)

const DefaultThreshold = 80

// Binarize converts img to grayscale and maps every pixel brighter than
// level to white and the rest to black. The result starts at the origin.
func Binarize(img image.Image, level uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			var v uint8
			if g.Y > level {
				v = 255
			}
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = v
		}
	}
	return out
}
