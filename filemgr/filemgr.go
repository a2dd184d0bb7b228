package filemgr

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"butikk/utils"

	"github.com/disintegration/imaging"
)

var supportedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// SaveProductImage stores an uploaded image under dir and writes a listing
// thumbnail next to it. Returns the stored filename.
func SaveProductImage(file multipart.File, header *multipart.FileHeader, dir string) (string, error) {
	ext, ok := supportedImageTypes[header.Header.Get("Content-Type")]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", header.Header.Get("Content-Type"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := utils.GenerateID(14) + ext
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}

	if err := createThumb(path, dir, name); err != nil {
		// the full image is already stored; a missing thumbnail is cosmetic
		return name, nil
	}
	return name, nil
}

func createThumb(srcPath, dir, name string) error {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return err
	}
	thumb := imaging.Fit(img, 300, 300, imaging.Lanczos)
	return imaging.Save(thumb, filepath.Join(dir, "thumb_"+name))
}

// RemoveProductImages deletes stored images and their thumbnails. Errors are
// ignored; deletion is best-effort.
func RemoveProductImages(dir string, names []string) {
	for _, name := range names {
		base := filepath.Base(name)
		os.Remove(filepath.Join(dir, base))
		os.Remove(filepath.Join(dir, "thumb_"+base))
	}
}
