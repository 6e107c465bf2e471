package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxPhotoDimension bounds the width and height of stored product photos.
const MaxPhotoDimension = 1024

// MaxPhotoBytes is the largest upload accepted for a product photo.
const MaxPhotoBytes = 10 << 20

// ThumbnailDimension bounds label thumbnails. Labels are small and printed
// on monochrome printers, so thumbnails are grayscale.
const ThumbnailDimension = 160

const jpegQuality = 85

// ErrUnsupportedFormat is returned for data that is not a JPEG or PNG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is an encoded product photo.
type Photo struct {
	Data []byte
	MIME string
}

// ProcessPhoto validates an uploaded product photo by sniffing its bytes,
// downscales it to MaxPhotoDimension and re-encodes it as JPEG.
func ProcessPhoto(r io.Reader) (*Photo, error) {
	img, err := decode(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return nil, err
	}

	data, err := encodeJPEG(fit(img, MaxPhotoDimension))
	if err != nil {
		return nil, err
	}
	return &Photo{Data: data, MIME: "image/jpeg"}, nil
}

// Thumbnail turns a stored photo into a small grayscale JPEG for a label.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	small := fit(img, ThumbnailDimension)
	gray := image.NewGray(small.Bounds())
	draw.Draw(gray, gray.Bounds(), small, small.Bounds().Min, draw.Src)
	return encodeJPEG(gray)
}

func decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return nil, fmt.Errorf("image larger than %d bytes", MaxPhotoBytes)
	}

	// Client headers are not trusted; sniff the bytes.
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG accepted)", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img down with Catmull-Rom so neither side exceeds maxDim,
// keeping the aspect ratio. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
