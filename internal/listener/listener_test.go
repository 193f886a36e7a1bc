package listener

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/queue"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func popN(t *testing.T, q *RawQueue, n int) []event.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := make([]event.RawMessage, 0, n)
	for len(out) < n {
		m, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("timed out after %d of %d messages", len(out), n)
		}
		out = append(out, m)
	}
	return out
}

func TestTCP_LinesPerConnection(t *testing.T) {
	q := queue.New[event.RawMessage](16)
	l := NewTCP(TCPConfig{Addr: "127.0.0.1:0"}, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_, _ = io.WriteString(c, "<34>Jul 6 22:30:00 host a: one\n<34>Jul 6 22:30:01 host a: two\n")
	_ = c.Close()

	msgs := popN(t, q, 2)
	if string(msgs[0].Payload) != "<34>Jul 6 22:30:00 host a: one" || string(msgs[1].Payload) != "<34>Jul 6 22:30:01 host a: two" {
		t.Errorf("unexpected payloads %q, %q", msgs[0].Payload, msgs[1].Payload)
	}
	if msgs[0].Addr != "127.0.0.1" {
		t.Errorf("addr = %q", msgs[0].Addr)
	}
}

func TestTCP_Gzip(t *testing.T) {
	q := queue.New[event.RawMessage](16)
	l := NewTCP(TCPConfig{Addr: "127.0.0.1:0", Compression: CompressionGzip}, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	zw := gzip.NewWriter(c)
	_, _ = io.WriteString(zw, "<14>1 - host app - - - compressed\n")
	_ = zw.Close()
	_ = c.Close()

	msgs := popN(t, q, 1)
	if string(msgs[0].Payload) != "<14>1 - host app - - - compressed" {
		t.Errorf("payload = %q", msgs[0].Payload)
	}
}

func TestTCP_StopClosesOpenConnections(t *testing.T) {
	q := queue.New[event.RawMessage](16)
	l := NewTCP(TCPConfig{Addr: "127.0.0.1:0"}, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_, _ = io.WriteString(c, "<14>1 - host app - - - hello\n")
	popN(t, q, 1)

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a connection was open")
	}
	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Error("expected connection to be closed by server")
	}
}

func TestTCP_TLS(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t)
	tlsCfg, err := LoadTLSConfig(certFile, keyFile)
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	q := queue.New[event.RawMessage](16)
	l := NewTCP(TCPConfig{Addr: "127.0.0.1:0", TLS: tlsCfg}, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	c, err := tls.Dial("tcp", l.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_, _ = io.WriteString(c, "<14>1 - host app - - - secret\n")
	_ = c.Close()

	msgs := popN(t, q, 1)
	if string(msgs[0].Payload) != "<14>1 - host app - - - secret" {
		t.Errorf("payload = %q", msgs[0].Payload)
	}
}

func TestLoadTLSConfig_Missing(t *testing.T) {
	if _, err := LoadTLSConfig("/nonexistent/cert.pem", "/nonexistent/key.pem"); err == nil {
		t.Error("expected error for missing files")
	}
}

func TestTCP_BindFailure(t *testing.T) {
	q := queue.New[event.RawMessage](1)
	first := NewTCP(TCPConfig{Addr: "127.0.0.1:0"}, q, discard)
	if err := first.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer first.Stop()
	second := NewTCP(TCPConfig{Addr: first.Addr().String()}, q, discard)
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatal("expected bind failure on a used port")
	}
}

func TestUDP_MultiRecordDatagram(t *testing.T) {
	q := queue.New[event.RawMessage](16)
	l := NewUDP("127.0.0.1:0", 0, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	c, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_, _ = io.WriteString(c, "<34>Jul 6 22:30:00 h a: 1\n<34>Jul 6 22:30:00 h a: 2\n<34>Jul 6 22:30:00 h a: 3\n")

	msgs := popN(t, q, 3)
	for i, m := range msgs {
		if m.Addr != "127.0.0.1" {
			t.Errorf("msg %d addr = %q", i, m.Addr)
		}
	}
	if q.Len() != 0 {
		t.Errorf("unexpected extra records: %d", q.Len())
	}
}

func TestUDP_DropsWhenFull(t *testing.T) {
	q := queue.New[event.RawMessage](1)
	l := NewUDP("127.0.0.1:0", 0, q, discard)
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	c, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_, _ = io.WriteString(c, "a\nb\nc\n")

	deadline := time.Now().Add(2 * time.Second)
	for q.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if q.Len() != 1 {
		t.Errorf("queue len = %d, want 1", q.Len())
	}
}

func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}
