package blob

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const rootPrefix = "documents"

// ObjectPath builds documents/YYYY/MM/<uuid>-<slug>.<ext> for an uploaded file name.
func ObjectPath(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	if len(stem) > 80 {
		stem = strings.Trim(stem[:80], "-")
	}
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s-%s%s", rootPrefix, now.Year(), int(now.Month()), uuid.NewString(), stem, ext)
}

// cleanPath rejects absolute paths and traversal outside the store root.
func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
