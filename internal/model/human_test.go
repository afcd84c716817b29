package model_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTCPAddr_UnmarshalText(t *testing.T) {
	testCases := []struct {
		scenario string
		given    string
		setenv   func(t *testing.T)
		then     func(t *testing.T, addr *model.TCPAddr, err error)
	}{
		{
			scenario: "valid IPv4 address with port",
			given:    "192.168.1.1:8080",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.NoError(t, err)
				require.NotNil(t, addr.AsTCPAddr())
				require.Equal(t, "192.168.1.1", addr.IP.String())
				require.Equal(t, 8080, addr.Port)
			},
		},
		{
			scenario: "valid IPv6 address with port",
			given:    "[::1]:8080",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.NoError(t, err)
				require.NotNil(t, addr.AsTCPAddr())
				require.True(t, addr.IP.IsLoopback())
				require.Equal(t, 8080, addr.Port)
			},
		},
		{
			scenario: "valid hostname with port",
			given:    "localhost:3000",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.NoError(t, err)
				require.NotNil(t, addr.AsTCPAddr())
				require.Equal(t, 3000, addr.Port)
			},
		},
		{
			scenario: "valid address with port 0",
			given:    "0.0.0.0:0",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.NoError(t, err)
				require.NotNil(t, addr.AsTCPAddr())
				require.Equal(t, 0, addr.Port)
			},
		},
		{
			scenario: "environment variable expansion",
			given:    "${TEST_HOST}:${TEST_PORT}",
			setenv: func(t *testing.T) {
				t.Setenv("TEST_HOST", "127.0.0.1")
				t.Setenv("TEST_PORT", "9000")
			},
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.NoError(t, err)
				require.NotNil(t, addr.AsTCPAddr())
				require.Equal(t, "127.0.0.1", addr.IP.String())
				require.Equal(t, 9000, addr.Port)
			},
		},
		{
			scenario: "empty string",
			given:    "",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "can't be empty")
			},
		},
		{
			scenario: "invalid format - missing port",
			given:    "192.168.1.1",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.Error(t, err)
			},
		},
		{
			scenario: "invalid format - invalid port",
			given:    "192.168.1.1:invalid",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.Error(t, err)
			},
		},
		{
			scenario: "invalid format - port out of range",
			given:    "192.168.1.1:99999",
			then: func(t *testing.T, addr *model.TCPAddr, err error) {
				require.Error(t, err)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			addr := &model.TCPAddr{}
			if tc.setenv != nil {
				tc.setenv(t)
			}
			err := addr.UnmarshalText([]byte(tc.given))
			tc.then(t, addr, err)
		})
	}
}

func TestTCPAddr_MarshalText(t *testing.T) {
	testCases := []struct {
		scenario string
		given    *model.TCPAddr
		then     func(t *testing.T, text []byte, err error)
	}{
		{
			scenario: "valid TCP address",
			given: &model.TCPAddr{
				TCPAddr: &net.TCPAddr{
					IP:   net.ParseIP("192.168.1.1"),
					Port: 8080,
				},
			},
			then: func(t *testing.T, text []byte, err error) {
				require.NoError(t, err)
				require.Equal(t, "192.168.1.1:8080", string(text))
			},
		},
		{
			scenario: "nil TCP address",
			given:    &model.TCPAddr{},
			then: func(t *testing.T, text []byte, err error) {
				require.NoError(t, err)
				require.Empty(t, text)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			text, err := tc.given.MarshalText()
			tc.then(t, text, err)
		})
	}
}

func TestTCPAddr_JSONRoundTrip(t *testing.T) {
	testCases := []struct {
		scenario     string
		given        string
		expectedJSON string
	}{
		{
			scenario:     "IPv4 address with port",
			given:        "192.168.1.1:8080",
			expectedJSON: `"192.168.1.1:8080"`,
		},
		{
			scenario:     "localhost with port",
			given:        "127.0.0.1:3000",
			expectedJSON: `"127.0.0.1:3000"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			addr := &model.TCPAddr{}
			err := addr.UnmarshalText([]byte(tc.given))
			require.NoError(t, err)

			marshaled, err := json.Marshal(addr)
			require.NoError(t, err)
			require.JSONEq(t, tc.expectedJSON, string(marshaled))

			var unmarshaled model.TCPAddr
			err = json.Unmarshal(marshaled, &unmarshaled)
			require.NoError(t, err)
			require.Equal(t, addr.IP.String(), unmarshaled.IP.String())
			require.Equal(t, addr.Port, unmarshaled.Port)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	testCases := []struct {
		scenario string
		given    string
		setenv   func(t *testing.T)
		then     time.Duration
		err      bool
	}{
		{scenario: "milliseconds", given: "500ms", then: 500 * time.Millisecond},
		{scenario: "compound", given: "1m30s", then: 90 * time.Second},
		{
			scenario: "environment variable",
			given:    "${TEST_PROBE_TIMEOUT}",
			setenv: func(t *testing.T) {
				t.Setenv("TEST_PROBE_TIMEOUT", "2s")
			},
			then: 2 * time.Second,
		},
		{scenario: "no unit", given: "500", err: true},
		{scenario: "empty", given: "", err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			if tc.setenv != nil {
				tc.setenv(t)
			}
			var d model.Duration
			err := d.UnmarshalText([]byte(tc.given))
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then, d.Duration)
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()
	type holder struct {
		Timeout model.Duration `yaml:"timeout,omitempty"`
	}

	b, err := yaml.Marshal(holder{Timeout: model.Duration{Duration: 1500 * time.Millisecond}})
	require.NoError(t, err)
	require.Equal(t, "timeout: 1.5s\n", string(b))

	b, err = yaml.Marshal(holder{})
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(b))

	var h holder
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 250ms"), &h))
	require.Equal(t, 250*time.Millisecond, h.Timeout.Duration)
}
