package probe_test

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/probe"

	"github.com/stretchr/testify/require"
)

func TestTCP_Loopback(t *testing.T) {
	t.Parallel()

	t.Run("open", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				_ = conn.Close()
			}
		}()

		port := ln.Addr().(*net.TCPAddr).Port
		status := probe.TCP(t.Context(), "127.0.0.1", port, probe.DefaultOptions())
		require.Equal(t, model.StatusOpen, status)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		port := closedTCPPort(t)
		status := probe.TCP(t.Context(), "127.0.0.1", port, probe.DefaultOptions())
		require.Equal(t, model.StatusClosed, status)
	})
}

func TestTCP_FilteredAfterTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := probe.New(probe.Options{ConnectTimeout: 500 * time.Millisecond}).
			WithDialer(blackholeDialer{})

		start := time.Now()
		status := p.TCP(t.Context(), "192.0.2.1", 9)
		require.Equal(t, model.StatusFiltered, status)
		require.Equal(t, 500*time.Millisecond, time.Since(start))
	})
}

func TestTCP_Classification(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    error
		then     model.Status
	}{
		{
			scenario: "refused",
			given:    &net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			then:     model.StatusClosed,
		},
		{
			scenario: "unreachable",
			given:    &net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)},
			then:     model.StatusFiltered,
		},
		{
			scenario: "other",
			given:    errors.New("boom"),
			then:     model.StatusFiltered,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			p := probe.New(probe.DefaultOptions()).WithDialer(errDialer{err: tc.given})
			require.Equal(t, tc.then, p.TCP(t.Context(), "10.0.0.1", 80))
		})
	}
}

func TestTCP_Canceled(t *testing.T) {
	t.Parallel()

	t.Run("listening port", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		status := probe.TCP(ctx, "127.0.0.1", ln.Addr().(*net.TCPAddr).Port, probe.DefaultOptions())
		require.Equal(t, model.Failed, status.Kind)
		require.Contains(t, status.Reason, "probe canceled")
	})

	t.Run("cancel during dial", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		p := probe.New(probe.DefaultOptions()).
			WithDialer(dialerFunc(func(dctx context.Context, _, _ string) (net.Conn, error) {
				cancel()
				<-dctx.Done()
				return nil, &net.OpError{Op: "dial", Net: "tcp4", Err: dctx.Err()}
			}))
		status := p.TCP(ctx, "10.0.0.1", 80)
		require.Equal(t, model.StatusError("probe canceled: context canceled"), status)
	})
}

func TestTCP_Resolution(t *testing.T) {
	t.Parallel()

	t.Run("failure is filtered", func(t *testing.T) {
		t.Parallel()
		p := probe.New(probe.DefaultOptions()).
			WithLookup(func(context.Context, string, string) ([]net.IP, error) {
				return nil, &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}
			}).
			WithDialer(errDialer{err: errors.New("must not dial")})
		require.Equal(t, model.StatusFiltered, p.TCP(t.Context(), "nowhere.invalid", 80))
	})

	t.Run("first IPv4 address is used", func(t *testing.T) {
		t.Parallel()
		var dialed string
		p := probe.New(probe.DefaultOptions()).
			WithLookup(func(_ context.Context, network, host string) ([]net.IP, error) {
				require.Equal(t, "ip4", network)
				require.Equal(t, "example.test", host)
				return []net.IP{net.ParseIP("::1"), net.IPv4(127, 0, 0, 2), net.IPv4(127, 0, 0, 3)}, nil
			}).
			WithDialer(dialerFunc(func(_ context.Context, _, address string) (net.Conn, error) {
				dialed = address
				c1, c2 := net.Pipe()
				_ = c2.Close()
				return c1, nil
			}))
		require.Equal(t, model.StatusOpen, p.TCP(t.Context(), "example.test", 8080))
		require.Equal(t, "127.0.0.2:8080", dialed)
	})
}

func closedTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

type blackholeDialer struct{}

func (blackholeDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type errDialer struct {
	err error
}

func (d errDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, d.err
}

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}
