package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/reelhub/apiserver/types"
)

// Poster uploads are limited to what the catalog UI renders.
var allowedPosterTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// posterFromUpload verifies an uploaded poster image and returns its
// content hash and detected MIME type. The object key is assigned by the
// caller once the upload is accepted.
func posterFromUpload(filename string, data []byte) (types.PosterImage, error) {
	if len(data) == 0 {
		return types.PosterImage{}, errors.New("empty poster data")
	}

	contentType := http.DetectContentType(data)
	if _, ok := allowedPosterTypes[contentType]; !ok {
		return types.PosterImage{}, ErrUnsupportedPoster
	}

	// The extension is advisory only; content sniffing decides. A
	// mismatch still gets rejected so stored keys stay truthful.
	if ext := extensionOf(filename); ext != "" && ext != allowedPosterTypes[contentType] && !(ext == ".jpeg" && contentType == "image/jpeg") {
		return types.PosterImage{}, ErrUnsupportedPoster
	}

	hash := sha256.Sum256(data)
	return types.PosterImage{
		SHA256:      hex.EncodeToString(hash[:]),
		ContentType: contentType,
	}, nil
}

func posterExtension(contentType string) string {
	return allowedPosterTypes[contentType]
}

func extensionOf(filename string) string {
	lower := strings.ToLower(strings.TrimSpace(filename))
	idx := strings.LastIndex(lower, ".")
	if idx < 0 {
		return ""
	}
	return lower[idx:]
}
