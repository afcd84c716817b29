package service_test

import (
	"testing"

	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/service"

	"github.com/stretchr/testify/require"
)

func TestEngine_Task(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    model.Job
		then     string
		err      string
	}{
		{
			scenario: "scan",
			given:    jobs[0],
			then:     `[{"port":80,"status":"Open","service":"http"}]`,
		},
		{
			scenario: "whois",
			given:    jobs[1],
			then: `{"domain":"example.com","registryDomainID":"","registrar":"","registrarWhoisServer":"",
				"registrarURL":"","creationDate":"","updatedDate":"","expiryDate":"","statuses":[],"nameServers":[],"dnssec":""}`,
		},
		{
			scenario: "unknown kind",
			given:    model.Job{Name: "p", Kind: "ping", Target: "example.com"},
			err:      `job "p": unsupported kind "ping"`,
		},
		{
			scenario: "empty target",
			given:    model.Job{Name: "e", Kind: model.JobKindScan, Target: " ", Ports: "80"},
			err:      model.ErrEmptyScanTarget.Error(),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			b, err := engine.Task(tc.given)(t.Context())
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.JSONEq(t, tc.then, string(b))
		})
	}

	_, err := service.Engine{}.Task(jobs[1])(t.Context())
	require.Error(t, err)
}
