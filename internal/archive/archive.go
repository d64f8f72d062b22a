// Package archive derives on-disk locations for exported nodes. Layout:
//
//	{dir}/{repo}/{site}/{ext}/{encoded repo+path}.xml
//
// where ext segregates daily snapshots (typically YYYYMMDD).
package archive

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/txstate-etc/mgnl-backup/internal/nodes"
)

// Path returns the directory holding one day's exports for the site a path
// belongs to.
func Path(dir, ext string, p nodes.PathInfo) string {
	return fmt.Sprintf("%s/%s/%s/%s", dir, p.Repo, siteOf(p.Path), ext)
}

// Filename encodes the qualified node path into a single filesystem-safe
// leaf name: every / becomes %2F and every space %20, so the whole JCR path
// survives as one flat file name.
func Filename(p nodes.PathInfo) string {
	return url.PathEscape(p.Repo.String()+p.Path) + ".xml"
}

// File joins Path and Filename into the full archive file location.
func File(dir, ext string, p nodes.PathInfo) string {
	return Path(dir, ext, p) + "/" + Filename(p)
}

// siteOf extracts the first /-delimited segment of an absolute path, or the
// empty string when there is none.
func siteOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
