// Package artifact manages generated audio files: the token scheme
// they are saved under, cleanup of expired files, and waiting for a
// file to become available after synthesis.
package artifact

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Handle references a generated audio file by its timestamp-derived
// token. It is created by the speech endpoint and consumed by the
// playback controller until the janitor expires the file.
type Handle struct {
	Token string `json:"token"`
}

// respDir is the subdirectory under the static root where generated
// audio is written.
const respDir = "resp"

// filenamePattern is the only filename shape the server will write or
// serve back.
var filenamePattern = regexp.MustCompile(`^r_\d+\.mp3$`)

// NewToken derives a fresh artifact token from the given time.
func NewToken(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// Filename returns the on-disk name for the handle, r_<token>.mp3.
func (h Handle) Filename() string {
	return fmt.Sprintf("r_%s.mp3", h.Token)
}

// Path resolves the handle to a file path under the static root.
func (h Handle) Path(staticRoot string) string {
	return filepath.Join(staticRoot, respDir, h.Filename())
}

// URLPath resolves the handle to the URL path it is served from.
func (h Handle) URLPath() string {
	return "/" + respDir + "/" + h.Filename()
}

// Dir returns the artifact directory under the static root.
func Dir(staticRoot string) string {
	return filepath.Join(staticRoot, respDir)
}

// ValidFilename reports whether name has the r_<token>.mp3 shape.
// The download endpoint refuses anything else so it can never be used
// to read outside the artifact directory.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}
