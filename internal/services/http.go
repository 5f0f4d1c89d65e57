package services

import (
	"net"
	"net/http"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// newHTTPClient bounds connection setup and time-to-first-byte. The body
// itself streams for as long as the load runs, so there is no overall
// client timeout; the run context cancels it instead.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = tripload.DefaultHTTPTimeout
	return &http.Client{Transport: transport}
}
