package storage

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"yatube/domain"
	"yatube/errs"
)

var _ domain.ImageService = &ImageService{}

// ImageService stores post images as files below a media root directory.
// It implements the domain.ImageService interface.
type ImageService struct {
	imageValidator
}

// imageValidator runs validations on uploaded images.
// On success, it passes the image on to imageStore.
type imageValidator struct {
	imageStore
}

// imageStore reads and writes image files. It assumes that images have been validated.
type imageStore struct {
	root string
}

// NewImageService returns an ImageService storing files below root.
// The image directory is created if it does not exist yet.
func NewImageService(root string) (*ImageService, error) {
	if root == "" {
		return nil, errors.New("media root required")
	}
	if err := os.MkdirAll(filepath.Join(root, domain.ImagesDir), 0755); err != nil {
		return nil, fmt.Errorf("err creating image directory: %w", err)
	}
	return &ImageService{
		imageValidator{
			imageStore{root: root},
		},
	}, nil
}

// Create validates the uploaded image and stores it under a unique name.
// On success img.Filename holds the stored name.
func (iv *imageValidator) Create(img *domain.Image) error {
	err := runImageValFns(img,
		iv.extensionValid,
		iv.belowMaxSize,
		iv.contentTypeValid,
		iv.contentTypeExtensionMatch,
		iv.decodable,
		iv.fileNameUnique,
	)
	if err != nil {
		return err
	}
	return iv.imageStore.Create(img)
}

type imageValFn func(img *domain.Image) error

func runImageValFns(img *domain.Image, fns ...imageValFn) error {
	for _, fn := range fns {
		if err := fn(img); err != nil {
			return err
		}
	}
	return nil
}

// invalid returns an EINVALID error attached to the image form field.
func invalid(format string, args ...interface{}) error {
	return errs.FieldErrorf("image", format, args...)
}

// belowMaxSize makes sure that the upload does not exceed domain.MaxUploadSize.
func (iv *imageValidator) belowMaxSize(img *domain.Image) error {
	size, err := img.File.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if err = resetReaderPosition(img); err != nil {
		return err
	}
	if size > domain.MaxUploadSize {
		return invalid("Image %s exceeds upload size limit of %dMB.", img.Filename, domain.MaxUploadSize>>20)
	}
	return nil
}

// contentTypeValid sniffs the content type from the first bytes of the file.
func (iv *imageValidator) contentTypeValid(img *domain.Image) error {
	buffer := make([]byte, 512)
	n, err := img.File.Read(buffer)
	if err != nil && err != io.EOF {
		return err
	}
	if err = resetReaderPosition(img); err != nil {
		return err
	}
	contentType := http.DetectContentType(buffer[:n])
	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return invalid("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	img.ContentType = contentType
	return nil
}

// contentTypeExtensionMatch makes sure the file extension matches the sniffed content type.
func (iv *imageValidator) contentTypeExtensionMatch(img *domain.Image) error {
	contentType := strings.TrimPrefix(img.ContentType, "image/")
	ext := strings.TrimPrefix(img.Extension, ".")
	if contentType != ext {
		return invalid("Image %s content-type %s does not match extension %s.", img.Filename, img.ContentType, img.Extension)
	}
	return nil
}

// decodable makes sure the image header can actually be decoded.
func (iv *imageValidator) decodable(img *domain.Image) error {
	_, _, err := image.DecodeConfig(img.File)
	if rerr := resetReaderPosition(img); rerr != nil {
		return rerr
	}
	if err != nil {
		return invalid("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return nil
}

// extensionValid normalizes the extension and makes sure it belongs to a supported format.
func (iv *imageValidator) extensionValid(img *domain.Image) error {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" && ext != ".gif" {
		return invalid("Image %s has an invalid extension, must be .jpeg, .png or .gif.", img.Filename)
	}
	if ext == ".jpg" {
		ext = ".jpeg"
	}
	img.Extension = ext
	return nil
}

// fileNameUnique replaces the client's filename by a random one.
func (iv *imageValidator) fileNameUnique(img *domain.Image) error {
	img.Filename = uuid.NewString() + img.Extension
	return nil
}

// resetReaderPosition back to beginning of the file, so that subsequent reads will work.
func resetReaderPosition(img *domain.Image) error {
	_, err := img.File.Seek(0, io.SeekStart)
	return err
}

// Create writes the image file below the media root.
func (is *imageStore) Create(img *domain.Image) error {
	dst, err := os.Create(is.path(img.RelativePath()))
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, img.File); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Delete removes a stored image by its path relative to the media root.
// Missing files are ignored.
func (is *imageStore) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(is.path(relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// path resolves a relative path below the media root, refusing to leave it.
func (is *imageStore) path(relPath string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(relPath))
	return filepath.Join(is.root, clean)
}
