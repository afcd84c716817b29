// Package whois looks up domain registration data over the WHOIS protocol.
//
// A lookup asks the IANA root server first and follows at most one
// referral to a more specific server.
package whois

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/CZERTAINLY/netprobe/internal/log"
	"github.com/CZERTAINLY/netprobe/internal/model"
)

var ErrEmptyTarget = errors.New("whois target can't be empty")

// Querier performs one WHOIS exchange. *Transport implements it.
type Querier interface {
	Query(ctx context.Context, server, target string) ([]byte, error)
}

// Response is the raw text of a lookup and the server which produced it.
type Response struct {
	Server   string `json:"server" yaml:"server"`
	Referral string `json:"referral,omitempty" yaml:"referral,omitempty"`
	Text     string `json:"text" yaml:"text"`
}

type Resolver struct {
	root    string
	querier Querier
	counter model.Stats
}

func NewResolver(root string, querier Querier, counter model.Stats) *Resolver {
	if root == "" {
		root = model.DefaultWhoisServer
	}
	return &Resolver{
		root:    root,
		querier: querier,
		counter: counter,
	}
}

// Lookup returns the parsed WHOIS record of target. Failures degrade the
// record rather than fail the call: an unreachable root yields an empty
// record, an unreachable referral falls back to the root answer. Domain
// is always set to target.
func (r *Resolver) Lookup(ctx context.Context, target string) model.WhoisRecord {
	resp, err := r.Raw(ctx, target)
	if err != nil {
		slog.WarnContext(ctx, "whois lookup skipped", "error", err)
	}
	rec := Parse(resp.Text)
	rec.Domain = target
	return rec
}

// Raw performs the queries of Lookup and returns the text which would be
// parsed. The only error is ErrEmptyTarget.
func (r *Resolver) Raw(ctx context.Context, target string) (Response, error) {
	if strings.TrimSpace(target) == "" {
		return Response{}, ErrEmptyTarget
	}
	ctx = log.ContextAttrs(ctx, slog.String("target", target))

	resp := Response{Server: r.root}
	text, err := r.query(ctx, r.root, target)
	if err != nil {
		slog.WarnContext(ctx, "root whois query failed", "server", r.root, "error", err)
		return resp, nil
	}
	resp.Text = text

	referral := Referral(text)
	if referral == "" {
		slog.DebugContext(ctx, "no whois referral", "server", r.root)
		return resp, nil
	}
	resp.Referral = referral
	r.inc(model.Stats.IncReferrals)

	text, err = r.query(ctx, referral, target)
	if err != nil {
		slog.DebugContext(ctx, "referral whois query failed, using root response", "server", referral, "error", err)
		return resp, nil
	}
	resp.Server = referral
	resp.Text = text
	return resp, nil
}

func (r *Resolver) query(ctx context.Context, server, target string) (string, error) {
	ctx = log.ContextAttrs(ctx, slog.String("server", server))
	slog.DebugContext(ctx, "whois query")
	r.inc(model.Stats.IncWhoisQueries)
	b, err := r.querier.Query(ctx, server, target)
	if err != nil {
		r.inc(model.Stats.IncErrWhois)
		return "", err
	}
	return string(b), nil
}

func (r *Resolver) inc(f func(model.Stats)) {
	if r.counter != nil {
		f(r.counter)
	}
}

// Referral returns the first whitespace delimited token of text starting
// with "whois.", e.g. the value of IANA's "refer:" line. Empty string means
// there is no referral.
func Referral(text string) string {
	for line := range strings.Lines(text) {
		for _, tok := range strings.Fields(line) {
			if !strings.HasPrefix(tok, "whois.") {
				continue
			}
			tok = strings.TrimRight(tok, ".,;:)]>\"'")
			if strings.Contains(tok, ".") {
				return tok
			}
		}
	}
	return ""
}
