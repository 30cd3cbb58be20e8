// Package zip bundles campaign images into a single download.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"time"
)

// Asset is one file in the archive.
type Asset struct {
	Filename string
	Data     []byte
	Modified time.Time
}

// Write streams assets into w as a zip archive. Duplicate names get a
// numeric suffix so no entry is silently shadowed.
func Write(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := path.Base(asset.Filename)
		if n := seen[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s-%d%s", name[:len(name)-len(ext)], n, ext)
		}
		seen[path.Base(asset.Filename)]++
		header := &zip.FileHeader{Name: name, Method: zip.Store, Modified: asset.Modified}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := entry.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}
