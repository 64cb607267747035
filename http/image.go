package http

import (
	"net/http"

	"yatube/domain"
)

// storeUploadedImage stores the image uploaded in the "image" field of a
// multipart form and returns its path relative to the media root. It returns
// the empty string if no image was uploaded.
func (s *Server) storeUploadedImage(r *http.Request) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return "", nil
	}
	header := r.MultipartForm.File["image"][0]
	if header.Size == 0 && header.Filename == "" {
		return "", nil
	}
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	img := domain.Image{
		File:     file,
		Filename: header.Filename,
	}
	if err := s.is.Create(&img); err != nil {
		return "", err
	}
	return img.RelativePath(), nil
}

// removeImage deletes a stored image. Failures only leave an orphaned file
// behind, so they are logged and otherwise ignored.
func (s *Server) removeImage(relPath string) {
	if relPath == "" {
		return
	}
	if err := s.is.Delete(relPath); err != nil {
		s.logger.Warn().Err(err).Str("image", relPath).Msg("removing image failed")
	}
}
