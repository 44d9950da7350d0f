package publish

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidEndpoint   = errors.New("endpoint malformed")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// Default ports by scheme.
var defaultPorts = map[string]string{
	"rtmp":  "1935",
	"rtmps": "443",
}

// Endpoint is a parsed publish URL of the form
//
//	rtmp[s]://host[:port]/app/stream
//
// where stream may itself contain slashes and a query string.
type Endpoint struct {
	URL *url.URL

	// host:port to dial
	Address string

	// Whether to wrap the connection in TLS.
	TLS bool

	App    string
	Stream string
}

func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidEndpoint, "%s: %v", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	port, ok := defaultPorts[scheme]
	if !ok {
		if scheme == "" {
			return nil, errors.Wrapf(ErrInvalidEndpoint, "%s: missing scheme", raw)
		}
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%s", scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.Wrapf(ErrInvalidEndpoint, "%s: missing host", raw)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	// The first path segment is the application, the rest is the stream.
	segs := strings.SplitN(strings.TrimPrefix(u.RequestURI(), "/"), "/", 2)
	if len(segs) < 2 || segs[0] == "" || segs[1] == "" {
		return nil, errors.Wrapf(ErrInvalidEndpoint, "%s: want /app/stream path", raw)
	}

	return &Endpoint{
		URL:     u,
		Address: u.Host,
		TLS:     scheme == "rtmps",
		App:     segs[0],
		Stream:  segs[1],
	}, nil
}

func (e *Endpoint) String() string {
	return e.URL.String()
}
