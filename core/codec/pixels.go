package codec

import (
	"image"
	"image/color"
	"image/draw"
)

// ModelName names a colour model the way reports show it.
func ModelName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "Paletted"
	}
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.AlphaModel:
		return "Alpha"
	case color.Alpha16Model:
		return "Alpha16"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	}
	return "unknown"
}

// Strip builds a fresh image of the same concrete type and bounds as img and
// copies the pixel samples into it. Nothing else is carried over.
func Strip(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.RGBA:
		dst := image.NewRGBA(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.NRGBA:
		dst := image.NewNRGBA(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.RGBA64:
		dst := image.NewRGBA64(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.NRGBA64:
		dst := image.NewNRGBA64(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.Gray:
		dst := image.NewGray(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.Gray16:
		dst := image.NewGray16(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.Alpha:
		dst := image.NewAlpha(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.Alpha16:
		dst := image.NewAlpha16(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.CMYK:
		dst := image.NewCMYK(src.Rect)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.Paletted:
		palette := make(color.Palette, len(src.Palette))
		copy(palette, src.Palette)
		dst := image.NewPaletted(src.Rect, palette)
		copyRows(dst.Pix, dst.Stride, src.Pix, src.Stride, src.Rect.Dy())
		return dst
	case *image.YCbCr:
		dst := image.NewYCbCr(src.Rect, src.SubsampleRatio)
		copyYCbCr(dst, src)
		return dst
	case *image.NYCbCrA:
		dst := image.NewNYCbCrA(src.Rect, src.SubsampleRatio)
		copyYCbCr(&dst.YCbCr, &src.YCbCr)
		r := src.Rect
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				dst.A[dst.AOffset(x, y)] = src.A[src.AOffset(x, y)]
			}
		}
		return dst
	default:
		dst := image.NewNRGBA64(img.Bounds())
		draw.Draw(dst, dst.Rect, img, img.Bounds().Min, draw.Src)
		return dst
	}
}

// copyRows copies rows of a freshly allocated destination. dstStride is the
// tight row length; srcStride may be wider for sub-images.
func copyRows(dst []uint8, dstStride int, src []uint8, srcStride, rows int) {
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:(y+1)*dstStride], src[y*srcStride:y*srcStride+dstStride])
	}
}

func copyYCbCr(dst, src *image.YCbCr) {
	r := src.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Y[dst.YOffset(x, y)] = src.Y[src.YOffset(x, y)]
			di, si := dst.COffset(x, y), src.COffset(x, y)
			dst.Cb[di] = src.Cb[si]
			dst.Cr[di] = src.Cr[si]
		}
	}
}
