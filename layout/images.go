package layout

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// QRImage turns a module matrix into a square black-on-white image with the
// given side in pixels.
func QRImage(matrix [][]bool, side int) (image.Image, error) {
	n := len(matrix)
	if n == 0 {
		return nil, fmt.Errorf("empty qr matrix")
	}
	if side < n {
		return nil, fmt.Errorf("qr side %dpx is smaller than the %d module symbol", side, n)
	}
	src := image.NewGray(image.Rect(0, 0, n, n))
	for y, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("qr matrix is not square: row %d has %d modules, want %d", y, len(row), n)
		}
		for x, dark := range row {
			c := color.Gray{Y: 0xff}
			if dark {
				c = color.Gray{}
			}
			src.SetGray(x, y, c)
		}
	}
	dst := image.NewGray(image.Rect(0, 0, side, side))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// FitLogo 按原始宽高比把 img 缩放到 zone 四周各留 gap 后能容纳的最大尺寸，
// 靠 zone 左侧放置并垂直居中。坐标取整像素。
func FitLogo(img image.Image, zone Rect, gap float64) (image.Image, Rect, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, Rect{}, fmt.Errorf("logo image is empty")
	}
	maxW, maxH := zone.W-2*gap, zone.H-2*gap
	if maxW < 1 || maxH < 1 {
		return nil, Rect{}, fmt.Errorf("logo zone %gx%g is too small", zone.W, zone.H)
	}
	scale := math.Min(maxW/float64(b.Dx()), maxH/float64(b.Dy()))
	w := math.Max(1, math.Floor(float64(b.Dx())*scale))
	h := math.Max(1, math.Floor(float64(b.Dy())*scale))
	box := Rect{
		X: math.Floor(zone.X + gap),
		Y: math.Floor(zone.Y + (zone.H-h)/2),
		W: w,
		H: h,
	}
	return imaging.Resize(img, int(w), int(h), imaging.Lanczos), box, nil
}
