package bridge

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/teensysecure/internal/logging"
	"github.com/muurk/teensysecure/internal/version"
)

// checkLoopback rejects listen addresses other than loopback ones. The bridge
// runs teensy_secure on request and has no authentication.
func checkLoopback(listen string) error {
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not a loopback address", listen)
	}
	return nil
}

// checkOrigin accepts clients without an Origin header (the IDE glue runs in
// a Node process) and pages served from the local machine.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.HasPrefix(u.Scheme, "vscode-") {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, version.Banner())
}

// logRequestDetails logs the WebSocket headers of an upgrade request
func logRequestDetails(r *http.Request) {
	logging.Debug("WebSocket upgrade request details",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("host", r.Host),
		zap.String("origin", r.Header.Get("Origin")),
		zap.String("sec_websocket_version", r.Header.Get("Sec-WebSocket-Version")),
		zap.String("user_agent", r.Header.Get("User-Agent")),
	)
}
