package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	ErrUndecodable   = errors.New("could not read image file")
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrImageTooLarge = errors.New("image dimensions exceed limit")
	defaultJPEGLevel = 92
	// 50 megapixels, about 200 MB once decoded to NRGBA.
	defaultMaxPixels int64 = 50_000_000
)

// DecodedImage is an upload normalised to RGB and re-encoded as JPEG for the detector.
type DecodedImage struct {
	JPEG   []byte
	Width  int
	Height int
	Format string
}

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	DecodeImage(data []byte) (*DecodedImage, error)
}

type utils struct {
	maxFileSize int64
	maxPixels   int64
	jpegQuality int
}

func New() IUtils {
	return NewWithLimits(5*1024*1024, defaultMaxPixels)
}

func NewWithLimit(maxFileSize int64) IUtils {
	return NewWithLimits(maxFileSize, defaultMaxPixels)
}

// NewWithLimits caps both the upload size in bytes and the decoded size in pixels.
func NewWithLimits(maxFileSize int64, maxPixels int64) IUtils {
	return &utils{
		maxFileSize: maxFileSize,
		maxPixels:   maxPixels,
		jpegQuality: defaultJPEGLevel,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	// generic uploads are left to DecodeImage
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" && !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
}

// DecodeImage decodes any registered format (jpeg, png, gif, bmp, tiff, webp), applies EXIF
// orientation, drops alpha and re-encodes the pixels as JPEG. The header dimensions are
// checked against the pixel limit before any pixel is decoded.
func (u *utils) DecodeImage(data []byte) (*DecodedImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUndecodable
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > u.maxPixels {
		return nil, ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUndecodable
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrEmptyImage
	}

	rgb := imaging.New(bounds.Dx(), bounds.Dy(), image.White.C)
	rgb = imaging.Overlay(rgb, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, rgb, imaging.JPEG, imaging.JPEGQuality(u.jpegQuality)); err != nil {
		return nil, err
	}

	return &DecodedImage{
		JPEG:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}, nil
}
