package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"
)

const binarizeThreshold = 128

// preprocess normalizes a challenge image before recognition: 2x upscale,
// grayscale, doubled contrast, sharpen, then binarize. Recognizers do much
// better on the resulting high-contrast two-tone image than on the raw
// obfuscated original.
func preprocess(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode challenge image: %w", err)
	}

	gray := upscaleGray(src, 2)
	adjustContrast(gray, 2.0)
	gray = sharpen(gray)
	binarize(gray, binarizeThreshold)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode processed image: %w", err)
	}
	return buf.Bytes(), nil
}

// upscaleGray converts to grayscale while scaling by nearest neighbour.
// Challenge glyphs are blocky, so anything fancier adds blur without adding
// information.
func upscaleGray(src image.Image, factor int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))

	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			sx := b.Min.X + x/factor
			sy := b.Min.Y + y/factor
			dst.SetGray(x, y, color.GrayModel.Convert(src.At(sx, sy)).(color.Gray))
		}
	}
	return dst
}

func adjustContrast(img *image.Gray, factor float64) {
	for i, v := range img.Pix {
		img.Pix[i] = clampByte(128 + (float64(v)-128)*factor)
	}
}

// sharpen applies the classic 3x3 sharpening kernel (center 32, neighbours
// -2, scale 16) with edge clamping.
func sharpen(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(img.Rect)

	at := func(x, y int) int {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return int(img.GrayAt(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 32 * at(x, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					sum -= 2 * at(x+dx, y+dy)
				}
			}
			out.SetGray(img.Rect.Min.X+x, img.Rect.Min.Y+y, color.Gray{Y: clampByte(float64(sum) / 16)})
		}
	}
	return out
}

func binarize(img *image.Gray, threshold uint8) {
	for i, v := range img.Pix {
		if v > threshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
