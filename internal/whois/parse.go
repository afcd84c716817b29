package whois

import (
	"strings"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

type field struct {
	prefix string
	set    func(r *model.WhoisRecord, value string)
}

// fields are matched in order, first match wins. The registrar server and
// URL prefixes must precede "Registrar:".
var fields = []field{
	{"Domain Name:", func(r *model.WhoisRecord, v string) { r.Domain = v }},
	{"Registry Domain ID:", func(r *model.WhoisRecord, v string) { r.RegistryDomainID = v }},
	{"Registrar WHOIS Server:", func(r *model.WhoisRecord, v string) { r.RegistrarWhoisServer = v }},
	{"Registrar URL:", func(r *model.WhoisRecord, v string) { r.RegistrarURL = v }},
	{"Registrar:", func(r *model.WhoisRecord, v string) { r.Registrar = v }},
	{"Creation Date:", func(r *model.WhoisRecord, v string) { r.CreationDate = v }},
	{"Updated Date:", func(r *model.WhoisRecord, v string) { r.UpdatedDate = v }},
	{"Registry Expiry Date:", func(r *model.WhoisRecord, v string) { r.ExpiryDate = v }},
	{"Domain Status:", func(r *model.WhoisRecord, v string) { r.Statuses = append(r.Statuses, v) }},
	{"Name Server:", func(r *model.WhoisRecord, v string) { r.NameServers = append(r.NameServers, v) }},
	{"DNSSEC:", func(r *model.WhoisRecord, v string) { r.DNSSEC = v }},
}

// Parse extracts the known "Key: value" lines of a WHOIS response. Keys are
// case sensitive, unknown lines are ignored. Domain Status and Name Server
// may repeat and are collected in order.
func Parse(raw string) model.WhoisRecord {
	rec := model.WhoisRecord{
		Statuses:    []string{},
		NameServers: []string{},
	}
	for line := range strings.Lines(raw) {
		line = stripControl(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		for _, f := range fields {
			if value, ok := strings.CutPrefix(line, f.prefix); ok {
				f.set(&rec, strings.TrimSpace(value))
				break
			}
		}
	}
	return rec
}

// stripControl drops bytes below 0x20. It works on bytes, not runes, so
// Latin-1 and other non UTF-8 registry output passes unchanged.
func stripControl(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 {
			b = append(b, s[i])
		}
	}
	return string(b)
}
