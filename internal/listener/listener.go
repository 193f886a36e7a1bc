// Package listener accepts syslog traffic over TCP and UDP and pushes every
// received record onto the raw queue.
package listener

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/queue"
)

// RawQueue is the queue listeners feed.
type RawQueue = queue.Queue[event.RawMessage]

// Compression methods accepted on TCP streams.
const (
	CompressionNone    = "none"
	CompressionGzip    = "gzip"
	CompressionDeflate = "deflate"
)

// DefaultMaxLineSize bounds a single TCP record and a UDP datagram.
const DefaultMaxLineSize = 64 * 1024

// LoadTLSConfig builds a server TLS config from a PEM certificate and key.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair (%s, %s): %w", certFile, keyFile, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// hostOf returns the IP part of a peer address.
func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
