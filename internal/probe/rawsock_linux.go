//go:build linux

package probe

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type rawICMP struct {
	fd int
}

// ListenICMP opens a raw IPv4 ICMP socket. It needs CAP_NET_RAW or root,
// ErrPrivilege is returned otherwise.
func ListenICMP() (ICMPSource, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("%w: %w", ErrPrivilege, err)
		}
		return nil, err
	}
	return &rawICMP{fd: fd}, nil
}

func (r *rawICMP) Recv(buf []byte, timeout time.Duration) (int, error) {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(r.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return 0, fmt.Errorf("setting receive timeout: %w", err)
	}
	for {
		n, _, err := unix.Recvfrom(r.fd, buf, 0)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}

func (r *rawICMP) Close() error {
	return unix.Close(r.fd)
}
