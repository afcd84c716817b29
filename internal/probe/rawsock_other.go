//go:build !linux

package probe

import (
	"errors"
	"runtime"
)

// ListenICMP is only implemented on linux.
func ListenICMP() (ICMPSource, error) {
	return nil, errors.New("raw ICMP sockets are not supported on " + runtime.GOOS)
}
