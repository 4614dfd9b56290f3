package mail

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/metrics"
)

// testSMTPServer is a minimal SMTP server on a random local port. It only
// implements the commands the mail transport needs and records every message
// it accepts.
type testSMTPServer struct {
	host string
	port int
	ln   net.Listener
	wg   sync.WaitGroup

	// rejectRcpt is the number of upcoming RCPT commands answered with 550.
	rejectRcpt atomic.Int32

	mu       sync.Mutex
	conns    []net.Conn
	messages []string
}

func startTestSMTPServer(t *testing.T) *testSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to listen")

	s := &testSMTPServer{
		host: "127.0.0.1",
		port: ln.Addr().(*net.TCPAddr).Port,
		ln:   ln,
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.stop)
	return s
}

func (s *testSMTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *testSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	fmt.Fprintf(conn, "220 localhost Test SMTP Service Ready\r\n")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
			fmt.Fprintf(conn, "250-localhost Hello\r\n250 OK\r\n")
		case strings.HasPrefix(line, "RCPT TO:"):
			if s.rejectRcpt.Load() > 0 {
				s.rejectRcpt.Add(-1)
				fmt.Fprintf(conn, "550 mailbox unavailable\r\n")
				continue
			}
			fmt.Fprintf(conn, "250 OK\r\n")
		case strings.HasPrefix(line, "DATA"):
			fmt.Fprintf(conn, "354 End data with <CR><LF>.<CR><LF>\r\n")
			var b strings.Builder
			for {
				dline, derr := r.ReadString('\n')
				if derr != nil {
					return
				}
				if strings.TrimSpace(dline) == "." {
					break
				}
				b.WriteString(dline)
			}
			s.mu.Lock()
			s.messages = append(s.messages, b.String())
			s.mu.Unlock()
			fmt.Fprintf(conn, "250 OK: queued as 12345\r\n")
		case strings.HasPrefix(line, "QUIT"):
			fmt.Fprintf(conn, "221 Bye\r\n")
			return
		default:
			fmt.Fprintf(conn, "250 OK\r\n")
		}
	}
}

func (s *testSMTPServer) stop() {
	s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *testSMTPServer) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *testSMTPServer) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func newTestTransport(s *testSMTPServer) *SMTPTransport {
	return NewSMTPTransport(SMTPConfig{
		Host:          s.host,
		Port:          s.port,
		SenderAddress: "sender@example.com",
	}, zap.NewNop().Sugar())
}

func TestNewSMTPTransport_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		cfg        SMTPConfig
		wantAddr   string
		wantName   string
		wantSSL    bool
		wantVerify bool
	}{
		{
			name:     "sender defaults to the login user",
			cfg:      SMTPConfig{Host: "smtp.gmail.com", Port: 465, Username: "loans@example.com", Password: "secret"},
			wantAddr: "loans@example.com",
			wantName: "Mvlzerz App",
			wantSSL:  true,
		},
		{
			name: "explicit sender",
			cfg: SMTPConfig{
				Host:          "smtp.example.com",
				Port:          587,
				Username:      "user",
				SenderAddress: "noreply@example.com",
				SenderName:    "Collections",
			},
			wantAddr: "noreply@example.com",
			wantName: "Collections",
		},
		{
			name:       "insecure relay",
			cfg:        SMTPConfig{Host: "relay.internal", Port: 25, InsecureSkipVerify: true},
			wantName:   "Mvlzerz App",
			wantVerify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewSMTPTransport(tt.cfg, zap.NewNop().Sugar())

			assert.Implements(t, (*Transport)(nil), tr)
			assert.Equal(t, tt.cfg.Host, tr.GetHost())
			assert.Equal(t, tt.cfg.Port, tr.GetPort())
			assert.Equal(t, tt.wantAddr, tr.senderAddress)
			assert.Equal(t, tt.wantName, tr.senderName)
			assert.Equal(t, tt.wantSSL, tr.dialer.SSL)
			if tt.wantVerify {
				require.NotNil(t, tr.dialer.TLSConfig)
				assert.True(t, tr.dialer.TLSConfig.InsecureSkipVerify)
			}
		})
	}
}

func TestSMTPTransport_SendHappyPath(t *testing.T) {
	srv := startTestSMTPServer(t)
	tr := newTestTransport(srv)
	before := testutil.ToFloat64(metrics.MailSendSuccess.WithLabelValues(srv.host))

	session, err := tr.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	err = session.Send([]string{"ada@example.com"}, ReminderSubject, "<p>body</p>")
	require.NoError(t, err, "expected Send to succeed against test SMTP server")

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "To: ada@example.com")
	assert.Contains(t, msgs[0], "Subject: "+ReminderSubject)
	assert.Contains(t, msgs[0], "sender@example.com")
	assert.Contains(t, msgs[0], "text/html")
	assert.Contains(t, msgs[0], "<p>body</p>")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MailSendSuccess.WithLabelValues(srv.host)))
}

func TestSMTPSession_ReusesConnection(t *testing.T) {
	srv := startTestSMTPServer(t)
	session, err := newTestTransport(srv).Open(context.Background())
	require.NoError(t, err)

	for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, session.Send([]string{to}, "subject", "<p>hi</p>"))
	}
	require.NoError(t, session.Close())

	assert.Len(t, srv.Messages(), 3)
	assert.Equal(t, 1, srv.ConnectionCount())
}

func TestSMTPSession_ReconnectsAfterFailure(t *testing.T) {
	srv := startTestSMTPServer(t)
	srv.rejectRcpt.Store(1)
	before := testutil.ToFloat64(metrics.MailSendFailure.WithLabelValues(srv.host))

	session, err := newTestTransport(srv).Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	err = session.Send([]string{"ada@example.com"}, "subject", "<p>first</p>")
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MailSendFailure.WithLabelValues(srv.host)))

	err = session.Send([]string{"ada@example.com"}, "subject", "<p>second</p>")
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "second")
	assert.Equal(t, 2, srv.ConnectionCount())
}

func TestSMTPSession_NoReceivers(t *testing.T) {
	srv := startTestSMTPServer(t)
	session, err := newTestTransport(srv).Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	err = session.Send(nil, "subject", "body")
	assert.ErrorIs(t, err, errNoReceivers)
	assert.Empty(t, srv.Messages())
}

func TestSMTPSession_CloseIsIdempotent(t *testing.T) {
	srv := startTestSMTPServer(t)
	session, err := newTestTransport(srv).Open(context.Background())
	require.NoError(t, err)

	assert.NoError(t, session.Close())
	assert.NoError(t, session.Close())
}

func TestSMTPTransport_OpenFailsWithoutServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := NewSMTPTransport(SMTPConfig{Host: "127.0.0.1", Port: port}, zap.NewNop().Sugar())
	before := testutil.ToFloat64(metrics.MailDialFailure.WithLabelValues("127.0.0.1"))

	session, err := tr.Open(context.Background())
	require.Error(t, err)
	assert.Nil(t, session)
	assert.Contains(t, err.Error(), "failed to connect")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MailDialFailure.WithLabelValues("127.0.0.1")))
}

func TestSMTPTransport_OpenCancelledContext(t *testing.T) {
	srv := startTestSMTPServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestTransport(srv).Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, srv.ConnectionCount())
}
