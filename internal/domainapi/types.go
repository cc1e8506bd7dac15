package domainapi

import "encoding/json"

// Meta is the pagination block of a list response envelope.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// envelope is the `{data, meta?}` convention every Domain Chief endpoint
// follows. Data is left raw so each operation can decode its own shape.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *Meta           `json:"meta"`
}

// Domain is a registered or in-transfer domain.
type Domain struct {
	Name                  string `json:"domain"`
	Status                string `json:"status"`
	ExpiresAt             string `json:"expires_at,omitempty"`
	IsUsingHostedDNS      bool   `json:"is_using_hosted_dns"`
	IsWhoisPrivacyEnabled bool   `json:"is_whois_privacy_enabled"`
	IsAutoRenewEnabled    bool   `json:"is_auto_renew_enabled"`

	// Populated only when the matching expand value was requested.
	TLD      map[string]any     `json:"tld,omitempty"`
	Contacts map[string]Contact `json:"contacts,omitempty"`
}

// DomainList is a page of domains.
type DomainList struct {
	Domains []Domain
	Meta    *Meta
}

// Contact is a WHOIS contact handle usable on registrations.
type Contact struct {
	Handle      string `json:"handle"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email"`
	IsDefault   bool   `json:"is_default"`
}

// ContactList is a page of contacts.
type ContactList struct {
	Contacts []Contact
	Meta     *Meta
}

// Nameserver is a custom nameserver with optional glue records.
type Nameserver struct {
	Hostname string `json:"hostname"`
	IPv4     string `json:"ipv4,omitempty"`
	IPv6     string `json:"ipv6,omitempty"`
}

// DNSSECKey is a DNSSEC public key record. Optional fields use pointers so
// "not supplied" is distinguishable from a zero value during validation.
type DNSSECKey struct {
	PublicKey string `json:"public_key"`
	Algorithm *int   `json:"algorithm,omitempty"`
	Flags     *int   `json:"flags,omitempty"`
	Protocol  *int   `json:"protocol,omitempty"`
}

// RegistrationParams describes a domain registration or transfer request.
// Boolean toggles are pointers: supplying a toggle at all conflicts with the
// corresponding explicit configuration, regardless of its value.
type RegistrationParams struct {
	Domain                string            `json:"domain"`
	AuthCode              string            `json:"auth_code,omitempty"`
	IsUsingHostedDNS      *bool             `json:"is_using_hosted_dns,omitempty"`
	Nameservers           []Nameserver      `json:"nameservers,omitempty"`
	IsWhoisPrivacyEnabled *bool             `json:"is_whois_privacy_enabled,omitempty"`
	Contacts              map[string]string `json:"contacts,omitempty"`
	DNSSECKeys            []DNSSECKey       `json:"dnssec_keys,omitempty"`
}

// ListOptions are the shared list query parameters. Zero values mean "not
// supplied" and are omitted from the query string.
type ListOptions struct {
	Page    int
	PerPage int
	Query   string
	Expand  []string
}

// Availability statuses returned by the availability endpoint.
const (
	AvailabilityFree = "free"
)
