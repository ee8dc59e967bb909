// Package zip bundles mirrored generation assets into a single archive for
// download.
package zip

import (
	"archive/zip"
	"bytes"
)

// Asset is one file to include in the archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes all assets into an in-memory zip archive. Assets that
// cannot be added are skipped rather than aborting the bundle.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.Create(asset.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			continue
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
