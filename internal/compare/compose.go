package compare

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DividerColor is drawn on the split line of a composite.
var DividerColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Compose renders the comparison at split percent: after is scaled onto the
// bounds of before and revealed from the left edge, with a one pixel divider
// at the boundary when it falls inside the image.
func Compose(before, after image.Image, split float64) *image.RGBA {
	bounds := before.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), before, bounds.Min, draw.Src)

	revealed := int(float64(dst.Bounds().Dx()) * clamp(split) / 100)
	if revealed <= 0 {
		return dst
	}

	scaled := image.NewRGBA(dst.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), after, after.Bounds(), draw.Src, nil)
	draw.Draw(dst, image.Rect(0, 0, revealed, dst.Bounds().Dy()), scaled, image.Point{}, draw.Src)

	if revealed < dst.Bounds().Dx() {
		line := image.Rect(revealed, 0, revealed+1, dst.Bounds().Dy())
		draw.Draw(dst, line, image.NewUniform(DividerColor), image.Point{}, draw.Src)
	}
	return dst
}
