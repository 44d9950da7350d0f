package media

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/av/avutil"
	"github.com/nareix/joy4/format"
	xerrors "golang.org/x/xerrors"

	"github.com/lanikai/alohacast/internal/logging"
)

var log = logging.DefaultLogger.WithTag("media")

func init() {
	format.RegisterAll()
}

// Containers that can be read from and written to local files, keyed by
// file extension.
var containers = map[string]bool{
	".mp4": true,
	".flv": true,
	".ts":  true,
}

// URL schemes that can be pulled as a source.
var pullSchemes = map[string]bool{
	"rtmp": true,
	"rtsp": true,
}

// SupportedContainers returns the known file extensions, sorted.
func SupportedContainers() []string {
	var exts []string
	for ext := range containers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// checkPath verifies that path names a container or URL scheme that joy4
// can handle. Pull URLs are only valid for reading.
func checkPath(path string, forWriting bool) error {
	if u, err := url.Parse(path); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if !forWriting && pullSchemes[u.Scheme] {
			return nil
		}
		return xerrors.Errorf("%s: scheme %q: %w", path, u.Scheme, ErrUnsupported)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !containers[ext] {
		return xerrors.Errorf("%s: extension %q (want one of %v): %w", path, ext, SupportedContainers(), ErrUnsupported)
	}
	return nil
}

func openDemuxer(path string) (av.DemuxCloser, error) {
	if err := checkPath(path, false); err != nil {
		return nil, err
	}
	d, err := avutil.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open %s: %w", path, err)
	}
	return d, nil
}

// Create opens a muxer that records to path. The container is chosen by the
// file extension.
func Create(path string) (av.MuxCloser, error) {
	if err := checkPath(path, true); err != nil {
		return nil, err
	}
	m, err := avutil.Create(path)
	if err != nil {
		return nil, xerrors.Errorf("create %s: %w", path, err)
	}
	log.Info("Recording to %s", path)
	return m, nil
}
