package model

import "iter"

const (
	StatsProbesTotal    = "_probes_total"
	StatsProbesOpen     = "_probes_open"
	StatsProbesClosed   = "_probes_closed"
	StatsProbesFiltered = "_probes_filtered"
	StatsProbesErr      = "_probes_errors"
	StatsWhoisQueries   = "_whois_queries"
	StatsWhoisErr       = "_whois_errors"
	StatsWhoisReferrals = "_whois_referrals"
)

// Stats collects counters of the probing engines.
type Stats interface {
	IncProbes()
	IncOpen()
	IncClosed()
	IncFiltered()
	IncErrProbes()
	IncWhoisQueries()
	IncErrWhois()
	IncReferrals()
	Stats() iter.Seq2[string, string]
}
