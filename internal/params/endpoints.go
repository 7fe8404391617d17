package params

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoEndpoints reports an endpoint list with no usable entries. This
// is not retryable; the caller surfaces it for an operator to resolve.
var ErrNoEndpoints = errors.New("no database endpoints")

// ClassifyEndpoints splits a comma-separated endpoint list into unix
// socket endpoints (file:// URLs) and tcp endpoints (host:port).
// Whitespace around entries is ignored and empty entries are skipped.
// A list with nothing usable fails with ErrNoEndpoints.
func ClassifyEndpoints(endpoints string) (sockets, tcp []string, err error) {
	if endpoints == "" {
		return nil, nil, ErrNoEndpoints
	}

	for _, endpoint := range strings.Split(endpoints, ",") {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		if strings.HasPrefix(endpoint, "file://") {
			sockets = append(sockets, endpoint)
		} else {
			tcp = append(tcp, endpoint)
		}
	}

	if len(sockets) == 0 && len(tcp) == 0 {
		return nil, nil, ErrNoEndpoints
	}
	return sockets, tcp, nil
}

// SocketPath extracts the filesystem path from a file:// endpoint.
func SocketPath(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse socket endpoint %q: %w", endpoint, err)
	}
	return u.Path, nil
}

// SplitHostPort splits a tcp endpoint on its last colon and strips any
// IPv6 brackets from the host part. "[::1]:3306" yields "::1" and
// "3306".
func SplitHostPort(endpoint string) (host, port string, err error) {
	idx := strings.LastIndex(endpoint, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("endpoint %q has no port", endpoint)
	}
	host, port = endpoint[:idx], endpoint[idx+1:]
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return host, port, nil
}
