package domain

import (
	"io"
	"path"
)

const (
	// ImagesDir is the directory below the media root that post images are stored in.
	ImagesDir = "posts"
	// MediaURL is the URL prefix uploaded files are served under.
	MediaURL = "/media/"
	// MaxUploadSize determines the maximum filesize of an image to be uploaded.
	MaxUploadSize int64 = 5 << 20 // 5 Megabyte
)

// Image represents an image to be uploaded. Images are stored as files below
// the media root and have no dedicated table in the database. The Post that
// owns an image references it by its relative path.
// File contains the uploaded content, Filename the name the client sent until
// the image is stored, after which it holds the unique stored name.
type Image struct {
	File        io.ReadSeeker
	Filename    string
	Extension   string
	ContentType string
}

// ImageService is a set of methods to manipulate and work with post images.
type ImageService interface {
	Create(img *Image) error
	Delete(relPath string) error
}

// RelativePath returns the path of an image relative to the media root.
func (i *Image) RelativePath() string {
	return path.Join(ImagesDir, i.Filename)
}
