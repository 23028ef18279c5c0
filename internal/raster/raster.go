package raster

import (
	"image"
	"image/color"
)

// Color is the channel layout of a raster.
type Color int

const (
	Gray Color = iota
	RGB
	RGBA
)

func (c Color) String() string {
	switch c {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Layout describes how a decoded image maps onto an interleaved buffer.
// Samples in the buffer are always 8 bits; Depth records the source bit depth
// so the image can be rebuilt with it.
type Layout struct {
	Color Color
	Depth int
}

func (l Layout) Channels() int {
	switch l.Color {
	case Gray:
		return 1
	case RGB:
		return 3
	default:
		return 4
	}
}

// Raster is an image as an interleaved 8-bit pixel buffer.
// Pix holds Width*Height pixels of Layout.Channels() samples in row-major order.
type Raster struct {
	bounds        image.Rectangle
	Width, Height int
	Layout        Layout
	Pix           []byte
}

// FromImage converts src into a raster.
//
// Gray images keep one channel, opaque color images three (R, G, B) and images
// with any translucent pixel four (non-premultiplied R, G, B, A).
// 16-bit samples are reduced to their high byte. Paletted, YCbCr and CMYK
// images are expanded to RGB or RGBA.
func FromImage(src image.Image) *Raster {
	r := &Raster{bounds: src.Bounds()}
	r.Width, r.Height = r.bounds.Dx(), r.bounds.Dy()
	area := r.Width * r.Height

	switch img := src.(type) {
	case *image.Gray:
		r.Layout = Layout{Color: Gray, Depth: 8}
		r.Pix = make([]byte, 0, area)
		for y := r.bounds.Min.Y; y < r.bounds.Max.Y; y++ {
			i := img.PixOffset(r.bounds.Min.X, y)
			r.Pix = append(r.Pix, img.Pix[i:i+r.Width]...)
		}
		return r
	case *image.Gray16:
		r.Layout = Layout{Color: Gray, Depth: 16}
		r.Pix = make([]byte, 0, area)
		for y := r.bounds.Min.Y; y < r.bounds.Max.Y; y++ {
			i := img.PixOffset(r.bounds.Min.X, y)
			row := img.Pix[i : i+r.Width*2]
			for x := 0; x < len(row); x += 2 {
				r.Pix = append(r.Pix, row[x])
			}
		}
		return r
	case *image.RGBA64, *image.NRGBA64:
		r.fromNRGBA64(src)
		return r
	}
	r.fromNRGBA(src)
	return r
}

func (r *Raster) fromNRGBA(src image.Image) {
	pixels := make([]color.NRGBA, 0, r.Width*r.Height)
	opaque := true
	for y := r.bounds.Min.Y; y < r.bounds.Max.Y; y++ {
		for x := r.bounds.Min.X; x < r.bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			opaque = opaque && c.A == 0xff
			pixels = append(pixels, c)
		}
	}

	r.Layout = Layout{Color: RGB, Depth: 8}
	if !opaque {
		r.Layout.Color = RGBA
	}
	r.Pix = make([]byte, 0, len(pixels)*r.Layout.Channels())
	for _, c := range pixels {
		r.Pix = append(r.Pix, c.R, c.G, c.B)
		if !opaque {
			r.Pix = append(r.Pix, c.A)
		}
	}
}

func (r *Raster) fromNRGBA64(src image.Image) {
	pixels := make([]color.NRGBA64, 0, r.Width*r.Height)
	opaque := true
	for y := r.bounds.Min.Y; y < r.bounds.Max.Y; y++ {
		for x := r.bounds.Min.X; x < r.bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
			opaque = opaque && c.A == 0xffff
			pixels = append(pixels, c)
		}
	}

	r.Layout = Layout{Color: RGB, Depth: 16}
	if !opaque {
		r.Layout.Color = RGBA
	}
	r.Pix = make([]byte, 0, len(pixels)*r.Layout.Channels())
	for _, c := range pixels {
		r.Pix = append(r.Pix, uint8(c.R>>8), uint8(c.G>>8), uint8(c.B>>8))
		if !opaque {
			r.Pix = append(r.Pix, uint8(c.A>>8))
		}
	}
}

// WithPix returns a copy of r that uses pix as its samples.
func (r *Raster) WithPix(pix []byte) *Raster {
	c := *r
	c.Pix = pix
	return &c
}

// Image rebuilds an image with the raster's color type and bit depth.
// 8-bit samples are widened by 257 for 16-bit images.
func (r *Raster) Image() image.Image {
	b := r.bounds
	ch := r.Layout.Channels()
	idx := 0
	switch {
	case r.Layout.Color == Gray && r.Layout.Depth == 16:
		dist := image.NewGray16(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dist.SetGray16(x, y, color.Gray16{Y: uint16(r.Pix[idx]) * 257})
				idx++
			}
		}
		return dist
	case r.Layout.Color == Gray:
		dist := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := dist.PixOffset(b.Min.X, y)
			copy(dist.Pix[i:i+r.Width], r.Pix[idx:idx+r.Width])
			idx += r.Width
		}
		return dist
	case r.Layout.Depth == 16:
		dist := image.NewNRGBA64(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				px := r.Pix[idx : idx+ch]
				c := color.NRGBA64{
					R: uint16(px[0]) * 257,
					G: uint16(px[1]) * 257,
					B: uint16(px[2]) * 257,
					A: 0xffff,
				}
				if ch == 4 {
					c.A = uint16(px[3]) * 257
				}
				dist.SetNRGBA64(x, y, c)
				idx += ch
			}
		}
		return dist
	default:
		dist := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				px := r.Pix[idx : idx+ch]
				c := color.NRGBA{R: px[0], G: px[1], B: px[2], A: 0xff}
				if ch == 4 {
					c.A = px[3]
				}
				dist.SetNRGBA(x, y, c)
				idx += ch
			}
		}
		return dist
	}
}
