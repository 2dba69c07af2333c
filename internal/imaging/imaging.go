package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrNilImage        = errors.New("no image to encode")
	ErrUnsupportedMime = errors.New("unsupported image type")
)

const jpegQuality = 90

// Codec はタグに埋め込む画像のバイト列と image.Image を相互に変換する。
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, mimeType string) ([]byte, error)
}

type StdCodec struct{}

func (StdCodec) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (StdCodec) Encode(img image.Image, mimeType string) ([]byte, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	var buf bytes.Buffer
	var err error
	switch mimeType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "image/png":
		err = png.Encode(&buf, img)
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	case "image/bmp":
		err = bmp.Encode(&buf, img)
	case "image/tiff":
		err = tiff.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, mimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", mimeType, err)
	}
	return buf.Bytes(), nil
}

// OutputMime は Encode で書き出すMIMEタイプを返す。
// エンコーダの無い形式(WebPなど)はJPEGで書き直す。
func OutputMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch mimeType {
	case "image/jpg":
		return "image/jpeg"
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return mimeType
	default:
		return "image/jpeg"
	}
}

// Fit は長辺が maxSize を超える画像を縦横比を保って縮小する。
// maxSize が0以下なら何もしない。
func Fit(img image.Image, maxSize int) image.Image {
	if img == nil || maxSize <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxSize && b.Dy() <= maxSize {
		return img
	}
	return resize.Thumbnail(uint(maxSize), uint(maxSize), img, resize.Lanczos3)
}
