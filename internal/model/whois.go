package model

// WhoisRecord is the structured part of a WHOIS response. Empty strings and
// empty slices mean the field was not present.
type WhoisRecord struct {
	Domain               string   `json:"domain" yaml:"domain"`
	RegistryDomainID     string   `json:"registryDomainID" yaml:"registry_domain_id"`
	Registrar            string   `json:"registrar" yaml:"registrar"`
	RegistrarWhoisServer string   `json:"registrarWhoisServer" yaml:"registrar_whois_server"`
	RegistrarURL         string   `json:"registrarURL" yaml:"registrar_url"`
	CreationDate         string   `json:"creationDate" yaml:"creation_date"`
	UpdatedDate          string   `json:"updatedDate" yaml:"updated_date"`
	ExpiryDate           string   `json:"expiryDate" yaml:"expiry_date"`
	Statuses             []string `json:"statuses" yaml:"statuses"`
	NameServers          []string `json:"nameServers" yaml:"name_servers"`
	DNSSEC               string   `json:"dnssec" yaml:"dnssec"`
}
