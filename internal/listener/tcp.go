package listener

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/metrics"
)

// TCPConfig configures the connection-oriented listener.
type TCPConfig struct {
	Addr        string
	TLS         *tls.Config // nil disables TLS
	Compression string      // none, gzip or deflate
	IdleTimeout time.Duration
	MaxLineSize int
}

// TCP reads newline-terminated records from each accepted connection on its own goroutine.
type TCP struct {
	cfg TCPConfig
	out *RawQueue
	log *slog.Logger

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewTCP creates a TCP listener feeding out.
func NewTCP(cfg TCPConfig, out *RawQueue, logger *slog.Logger) *TCP {
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultMaxLineSize
	}
	if cfg.Compression == "" {
		cfg.Compression = CompressionNone
	}
	return &TCP{
		cfg:   cfg,
		out:   out,
		log:   logger.With("transport", "tcp"),
		conns: make(map[net.Conn]struct{}),
	}
}

// Start binds the socket and begins accepting connections.
func (l *TCP) Start() error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", l.cfg.Addr, err)
	}
	if l.cfg.TLS != nil {
		ln = tls.NewListener(ln, l.cfg.TLS)
	}
	l.ln = ln
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.done = make(chan struct{})
	go l.acceptLoop()
	l.log.Info("started TCP listener", "addr", ln.Addr().String(), "tls", l.cfg.TLS != nil, "compression", l.cfg.Compression)
	return nil
}

// Addr returns the bound address.
func (l *TCP) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the listening socket, forcibly closes open connections and
// waits for their handlers to return.
func (l *TCP) Stop() {
	if l.ln == nil {
		return
	}
	l.log.Info("stopping TCP listener")
	l.cancel()
	_ = l.ln.Close()
	<-l.done

	l.mu.Lock()
	for c := range l.conns {
		_ = c.Close()
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *TCP) acceptLoop() {
	defer close(l.done)
	for {
		c, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Error("accept failed", "err", err)
			select {
			case <-time.After(100 * time.Millisecond):
				continue
			case <-l.ctx.Done():
				return
			}
		}
		l.mu.Lock()
		l.conns[c] = struct{}{}
		l.mu.Unlock()
		metrics.OpenConnections.Inc()

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(c)
			l.mu.Lock()
			delete(l.conns, c)
			l.mu.Unlock()
			metrics.OpenConnections.Dec()
			_ = c.Close()
		}()
	}
}

func (l *TCP) handle(c net.Conn) {
	addr := hostOf(c.RemoteAddr())
	log := l.log.With("conn_id", uuid.NewString(), "addr", addr)
	log.Debug("connection accepted")

	l.touch(c)
	r, err := l.decompress(c)
	if err != nil {
		log.Warn("cannot open compressed stream", "err", err)
		return
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), l.cfg.MaxLineSize)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		log.Debug("received", "line", string(line))
		metrics.MessagesReceived.WithLabelValues("tcp").Inc()
		msg := event.RawMessage{Addr: addr, Payload: line, ReceivedAt: time.Now()}
		if err := l.out.Push(l.ctx, msg); err != nil {
			metrics.MessagesDropped.WithLabelValues("shutdown").Inc()
			return
		}
		l.touch(c)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) && l.ctx.Err() == nil {
		log.Warn("connection read failed", "err", err)
		return
	}
	log.Debug("connection closed by peer")
}

func (l *TCP) touch(c net.Conn) {
	if l.cfg.IdleTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(l.cfg.IdleTimeout))
	}
}

func (l *TCP) decompress(c net.Conn) (io.ReadCloser, error) {
	switch l.cfg.Compression {
	case CompressionGzip:
		return gzip.NewReader(c)
	case CompressionDeflate:
		return zlib.NewReader(c)
	default:
		return io.NopCloser(c), nil
	}
}
