// SPDX-License-Identifier: MIT

// Package media transforms camera uploads into transport-friendly formats.
package media

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for camera stills
	"os"

	"golang.org/x/image/draw"
)

const jpegQuality = 87

// ResizePhoto downsamples the image at path so that its larger dimension is
// at most maxDim, preserving aspect ratio. When the image already fits (or
// maxDim is 0), the original path is returned untouched. When a resized copy
// is produced it is written to a fresh temp file, the original is removed,
// and the new path is returned. The caller owns the returned file.
func ResizePhoto(ctx context.Context, path string, maxDim int) (string, error) {
	if err := WaitForStable(ctx, path); err != nil {
		return "", err
	}
	if maxDim <= 0 {
		return path, nil
	}

	src, err := decodeImage(path)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return path, nil
	}

	dw, dh := fitWithin(w, h, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	out, err := os.CreateTemp("", "smarthomebot-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create temp photo: %w", err)
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("encode %s: %w", out.Name(), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("close %s: %w", out.Name(), err)
	}

	// The resized copy replaces the original.
	_ = os.Remove(path)
	return out.Name(), nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

// fitWithin scales (w, h) down so the larger side equals maxDim.
func fitWithin(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
