package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// DepthImage converts depth values (bottom row first, as read back from
// the GPU) into a grey image of outSize pixels. Near depth is dark unless
// reversedZ, where the buffer already stores near as 1 and is inverted.
func DepthImage(depth []float32, width, height, outSize int, reversedZ bool) (*image.Gray, error) {
	if len(depth) != width*height {
		return nil, fmt.Errorf("depth data size mismatch: expected %d, got %d", width*height, len(depth))
	}

	src := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := height - 1 - y // Flip Y
		for x := 0; x < width; x++ {
			d := depth[srcY*width+x]
			if reversedZ {
				d = 1 - d
			}
			d = min(max(d, 0), 1)
			src.Pix[y*src.Stride+x] = uint8(d*255 + 0.5)
		}
	}

	if outSize <= 0 || (outSize == width && outSize == height) {
		return src, nil
	}
	dst := image.NewGray(image.Rect(0, 0, outSize, outSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// ColorImage converts RGBA pixels read back from the GPU (bottom row
// first) into an image with the top row first.
func ColorImage(pixels []byte, width, height int) (*image.RGBA, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcY := height - 1 - y // Flip Y
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[srcY*rowSize:(srcY+1)*rowSize])
	}
	return img, nil
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}

// Scale resizes img to a size×size RGBA image.
func Scale(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
