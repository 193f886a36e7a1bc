package listener

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/metrics"
)

// UDP reads datagrams on a single socket. Each newline-separated record of a
// datagram is queued on its own. Records are dropped when the raw queue is full.
type UDP struct {
	addr    string
	maxSize int
	out     *RawQueue
	log     *slog.Logger

	conn net.PacketConn
	done chan struct{}
}

// NewUDP creates a UDP listener feeding out.
func NewUDP(addr string, maxSize int, out *RawQueue, logger *slog.Logger) *UDP {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	return &UDP{addr: addr, maxSize: maxSize, out: out, log: logger.With("transport", "udp")}
}

// Start binds the socket and begins reading.
func (l *UDP) Start() error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("udp listen %s: %w", l.addr, err)
	}
	l.conn = conn
	l.done = make(chan struct{})
	go l.readLoop()
	l.log.Info("started UDP listener", "addr", conn.LocalAddr().String())
	return nil
}

// Addr returns the bound address.
func (l *UDP) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Stop closes the socket and waits for the read loop to exit.
func (l *UDP) Stop() {
	if l.conn == nil {
		return
	}
	l.log.Info("stopping UDP listener")
	_ = l.conn.Close()
	<-l.done
}

func (l *UDP) readLoop() {
	defer close(l.done)
	buf := make([]byte, l.maxSize)
	for {
		n, raddr, err := l.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Error("cannot read datagram", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		metrics.MessagesReceived.WithLabelValues("udp").Inc()
		addr := hostOf(raddr)
		now := time.Now()
		lines := bytes.Split(buf[:n], []byte("\n"))
		if len(lines) > 1 && len(lines[len(lines)-1]) == 0 {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			l.log.Debug("received", "addr", addr, "line", string(line))
			msg := event.RawMessage{Addr: addr, Payload: append([]byte(nil), line...), ReceivedAt: now}
			if !l.out.TryPush(msg) {
				metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
				l.log.Warn("raw queue full, dropping record", "addr", addr)
			}
		}
	}
}
