package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/whois"

	"go.yaml.in/yaml/v4"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("formatting yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case formatTable:
		return writeTable(w, v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeTable(w io.Writer, v any) error {
	switch x := v.(type) {
	case whois.Response:
		_, err := io.WriteString(w, x.Text)
		return err
	case []model.PortResult, model.WhoisRecord:
	default:
		return fmt.Errorf("table format is not supported for %T", v)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch x := v.(type) {
	case []model.PortResult:
		fmt.Fprintln(tw, "PORT\tSTATUS\tSERVICE")
		for _, r := range x {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Port, r.Status, r.Service)
		}
	case model.WhoisRecord:
		rows := [][2]string{
			{"Domain", x.Domain},
			{"Registry Domain ID", x.RegistryDomainID},
			{"Registrar", x.Registrar},
			{"Registrar WHOIS Server", x.RegistrarWhoisServer},
			{"Registrar URL", x.RegistrarURL},
			{"Creation Date", x.CreationDate},
			{"Updated Date", x.UpdatedDate},
			{"Expiry Date", x.ExpiryDate},
			{"Statuses", strings.Join(x.Statuses, ", ")},
			{"Name Servers", strings.Join(x.NameServers, ", ")},
			{"DNSSEC", x.DNSSEC},
		}
		for _, r := range rows {
			fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
		}
	}
	return tw.Flush()
}
