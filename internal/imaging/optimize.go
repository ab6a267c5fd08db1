// Package imaging converts listing photos into size-bounded WebP.
package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/gift"
	"github.com/gabriel-vasile/mimetype"
	webpenc "github.com/gen2brain/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

const ContentTypeWebP = "image/webp"

// ErrNotImage is returned for payloads that do not sniff as a supported image.
var ErrNotImage = errors.New("not a supported image")

// Options controls optimization.
type Options struct {
	MaxDimension int
	Quality      int
}

// DefaultOptions matches the stored-image contract: 2000px bound, quality 85.
var DefaultOptions = Options{MaxDimension: 2000, Quality: 85}

// Result is an optimized image.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	SourceType  string
}

type decodeFunc func(r *bytes.Reader) (image.Image, error)

var decoders = map[string]decodeFunc{
	"image/jpeg": func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
	"image/png":  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
	"image/gif":  func(r *bytes.Reader) (image.Image, error) { return gif.Decode(r) },
	"image/webp": func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) },
	"image/bmp":  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
	"image/tiff": func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
}

// DetectImageType returns the sniffed MIME type when data is a supported
// image. A declared content type is trusted only if the bytes agree.
func DetectImageType(declared string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for mt := detected; mt != nil; mt = mt.Parent() {
		if _, ok := decoders[mt.String()]; ok {
			return mt.String(), nil
		}
	}
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if declared != "" && !strings.HasPrefix(declared, "image/") {
		return "", errors.Wrapf(ErrNotImage, "declared %s, sniffed %s", declared, detected.String())
	}
	return "", errors.Wrapf(ErrNotImage, "sniffed %s", detected.String())
}

// Optimize decodes data, shrinks it to fit within MaxDimension on its
// longest side (never enlarging) and encodes it as WebP.
func Optimize(data []byte, declaredType string, opts Options) (*Result, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultOptions.MaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultOptions.Quality
	}

	sourceType, err := DetectImageType(declaredType, data)
	if err != nil {
		return nil, err
	}

	src, err := decoders[sourceType](bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", sourceType)
	}

	img := Fit(src, opts.MaxDimension)

	var buf bytes.Buffer
	if err := webpenc.Encode(&buf, img, webpenc.Options{Quality: opts.Quality, Method: 4}); err != nil {
		return nil, errors.Wrap(err, "encode webp")
	}

	bounds := img.Bounds()
	return &Result{
		Data:        buf.Bytes(),
		ContentType: ContentTypeWebP,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		SourceType:  sourceType,
	}, nil
}

// Fit returns src unchanged when it already fits within maxDim, otherwise a
// Lanczos-resampled copy with the same aspect ratio.
func Fit(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return src
	}
	g := gift.New(gift.ResizeToFit(maxDim, maxDim, gift.LanczosResampling))
	dst := image.NewRGBA(g.Bounds(b))
	g.Draw(dst, src)
	return dst
}
