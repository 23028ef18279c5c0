package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImage_Layout(t *testing.T) {
	rect := image.Rect(0, 0, 3, 2)
	translucent := image.NewNRGBA(rect)
	translucent.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	translucent64 := image.NewNRGBA64(rect)

	test := []struct {
		name     string
		src      image.Image
		layout   Layout
		channels int
	}{
		{name: "gray", src: image.NewGray(rect), layout: Layout{Color: Gray, Depth: 8}, channels: 1},
		{name: "gray16", src: image.NewGray16(rect), layout: Layout{Color: Gray, Depth: 16}, channels: 1},
		{name: "opaque_rgba", src: opaque(image.NewRGBA(rect)), layout: Layout{Color: RGB, Depth: 8}, channels: 3},
		{name: "ycbcr", src: image.NewYCbCr(rect, image.YCbCrSubsampleRatio444), layout: Layout{Color: RGB, Depth: 8}, channels: 3},
		{name: "translucent", src: translucent, layout: Layout{Color: RGBA, Depth: 8}, channels: 4},
		{name: "opaque_rgba64", src: opaque(image.NewRGBA64(rect)), layout: Layout{Color: RGB, Depth: 16}, channels: 3},
		{name: "translucent_nrgba64", src: translucent64, layout: Layout{Color: RGBA, Depth: 16}, channels: 4},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			r := FromImage(tt.src)
			assert.Equal(t, tt.layout, r.Layout)
			assert.Equal(t, tt.channels, r.Layout.Channels())
			assert.Equal(t, 3, r.Width)
			assert.Equal(t, 2, r.Height)
			assert.Len(t, r.Pix, 3*2*tt.channels)
		})
	}
}

func TestFromImage_Samples(t *testing.T) {
	t.Run("rgb_row_major", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 2, 2))
		src.SetRGBA(0, 0, color.RGBA{1, 2, 3, 255})
		src.SetRGBA(1, 0, color.RGBA{4, 5, 6, 255})
		src.SetRGBA(0, 1, color.RGBA{7, 8, 9, 255})
		src.SetRGBA(1, 1, color.RGBA{10, 11, 12, 255})
		r := FromImage(src)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, r.Pix)
	})

	t.Run("gray16_high_byte", func(t *testing.T) {
		src := image.NewGray16(image.Rect(0, 0, 2, 1))
		src.SetGray16(0, 0, color.Gray16{Y: 0xABCD})
		src.SetGray16(1, 0, color.Gray16{Y: 0x00FF})
		assert.Equal(t, []byte{0xAB, 0x00}, FromImage(src).Pix)
	})

	t.Run("offset_bounds", func(t *testing.T) {
		src := image.NewGray(image.Rect(10, 20, 12, 21))
		src.SetGray(10, 20, color.Gray{Y: 9})
		src.SetGray(11, 20, color.Gray{Y: 8})
		r := FromImage(src)
		assert.Equal(t, []byte{9, 8}, r.Pix)
		assert.Equal(t, src.Bounds(), r.Image().Bounds())
	})
}

func TestRaster_Image(t *testing.T) {
	t.Run("gray16_widened", func(t *testing.T) {
		src := image.NewGray16(image.Rect(0, 0, 1, 1))
		src.SetGray16(0, 0, color.Gray16{Y: 0xABCD})
		dist, ok := FromImage(src).Image().(*image.Gray16)
		require.True(t, ok)
		assert.Equal(t, uint16(0xABAB), dist.Gray16At(0, 0).Y)
	})

	t.Run("rgba_keeps_alpha", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
		dist, ok := FromImage(src).Image().(*image.NRGBA)
		require.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 128}, dist.NRGBAAt(0, 0))
	})

	t.Run("rgb16_is_opaque", func(t *testing.T) {
		src := opaque(image.NewRGBA64(image.Rect(0, 0, 2, 2)))
		dist, ok := FromImage(src).Image().(*image.NRGBA64)
		require.True(t, ok)
		assert.True(t, dist.Opaque())
	})

	t.Run("with_pix", func(t *testing.T) {
		r := FromImage(image.NewGray(image.Rect(0, 0, 2, 1)))
		c := r.WithPix([]byte{5, 6})
		assert.Equal(t, []byte{0, 0}, r.Pix)
		dist := c.Image().(*image.Gray)
		assert.Equal(t, uint8(6), dist.GrayAt(1, 0).Y)
	})
}

func TestCodec_RoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := range 3 {
		for x := range 4 {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 80), B: 33, A: 255})
		}
	}
	for _, f := range []Format{PNG, BMP, TIFF} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, f, EncodeOptions{}))

			dec, name, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, f, name)
			assert.Equal(t, FromImage(src).Pix, FromImage(dec).Pix, "lossless container")
		})
	}

	t.Run(string(JPEG), func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, src, JPEG, EncodeOptions{JPEGQuality: 90}))
		dec, name, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, JPEG, name)
		assert.Equal(t, src.Bounds(), dec.Bounds())
	})

	t.Run("unsupported", func(t *testing.T) {
		err := Encode(&bytes.Buffer{}, src, Format("xcf"), EncodeOptions{})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)

		_, _, err = Decode(bytes.NewReader([]byte("not an image")))
		assert.Error(t, err)
	})
}

func TestFormatFromPath(t *testing.T) {
	test := []struct {
		path string
		exp  Format
	}{
		{path: "out.png", exp: PNG},
		{path: "a/b/photo.JPG", exp: JPEG},
		{path: "x.jpeg", exp: JPEG},
		{path: "x.gif", exp: GIF},
		{path: "x.bmp", exp: BMP},
		{path: "x.tif", exp: TIFF},
		{path: "x.webp", exp: WEBP},
	}
	for _, tt := range test {
		f, err := FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.exp, f, tt.path)
	}

	_, err := FormatFromPath("noext")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type setter interface {
	image.Image
	Set(x, y int, c color.Color)
}

// opaque fills img with a gradient at full alpha.
func opaque[T setter](img T) T {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 7, A: 255})
		}
	}
	return img
}
