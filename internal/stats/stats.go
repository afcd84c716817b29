package stats

import (
	"expvar"
	"iter"
	"maps"
	"slices"
)

// Stats holds expvar-backed counters for probing and WHOIS lookups and
// publishes them under a common key prefix. All counters are expvar.Map and
// are safe for concurrent updates. When the standard expvar HTTP handler is
// registered, these values are available at /debug/vars.
//
// - netprobe_probes_total: every probe executed, regardless of the outcome
// - netprobe_probes_open, _closed, _filtered: definitive probe outcomes
// - netprobe_probes_errors: probes which ended with a fault (privileges, resolution, socket)
// - netprobe_whois_queries: single WHOIS exchanges, root and referral
// - netprobe_whois_errors: WHOIS exchanges which failed
// - netprobe_whois_referrals: referral hops followed
type Stats struct {
	prefix string
	root   *expvar.Map
	probes *expvar.Map
	whois  *expvar.Map
}

// New publishes new set of metrics. Registering the same metrics twice causes panic, so for tests, the prefix should be unique.
func New(prefix string) *Stats {
	root := expvar.NewMap(prefix)
	probes := new(expvar.Map).Init()
	whois := new(expvar.Map).Init()

	for _, key := range []string{"total", "open", "closed", "filtered", "errors"} {
		probes.Add(key, 0)
	}
	for _, key := range []string{"queries", "errors", "referrals"} {
		whois.Add(key, 0)
	}

	root.Set("probes", probes)
	root.Set("whois", whois)

	return &Stats{
		prefix: prefix,
		root:   root,
		probes: probes,
		whois:  whois,
	}
}

func (s *Stats) IncProbes() {
	s.probes.Add("total", 1)
}
func (s *Stats) IncOpen() {
	s.probes.Add("open", 1)
}
func (s *Stats) IncClosed() {
	s.probes.Add("closed", 1)
}
func (s *Stats) IncFiltered() {
	s.probes.Add("filtered", 1)
}
func (s *Stats) IncErrProbes() {
	s.probes.Add("errors", 1)
}
func (s *Stats) IncWhoisQueries() {
	s.whois.Add("queries", 1)
}
func (s *Stats) IncErrWhois() {
	s.whois.Add("errors", 1)
}
func (s *Stats) IncReferrals() {
	s.whois.Add("referrals", 1)
}

// Stats returns a name, value iterator across registered metrics. This uses expvar.Do under the hood, so is safe to be called concurrently.
// Stats are returned in an alphabetic order.
func (s *Stats) Stats() iter.Seq2[string, string] {
	stats := make(map[string]string, 8)
	s.probes.Do(func(kv expvar.KeyValue) {
		stats["probes_"+kv.Key] = kv.Value.String()
	})
	s.whois.Do(func(kv expvar.KeyValue) {
		stats["whois_"+kv.Key] = kv.Value.String()
	})

	keys := slices.Sorted(maps.Keys(stats))
	return func(yield func(string, string) bool) {
		for _, key := range keys {
			if !yield(s.prefix+"_"+key, stats[key]) {
				return
			}
		}
	}
}
