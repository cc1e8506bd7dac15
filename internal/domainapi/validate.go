package domainapi

import (
	"net/url"
	"strconv"
	"strings"

	"chief/internal/cli"
)

// validExpandValues are the relations the API can expand inline.
var validExpandValues = []string{"tld", "contacts"}

// dnssecAlgorithms is the allow-list of IANA DNSSEC algorithm numbers.
var dnssecAlgorithms = map[int]bool{
	1: true, 2: true, 3: true, 5: true, 6: true, 7: true, 8: true,
	10: true, 12: true, 13: true, 14: true, 15: true, 16: true,
	17: true, 23: true,
}

// Domain name length bounds accepted by the registry.
const (
	minDomainLength = 3
	maxDomainLength = 63
)

// minNameservers is the smallest usable custom nameserver set.
const minNameservers = 2

// listQuery validates list options and converts them to query parameters.
// All checks run before any network call.
func listQuery(opts ListOptions) (url.Values, error) {
	q := url.Values{}

	if opts.Page != 0 {
		if opts.Page < 1 {
			return nil, cli.Validationf("page must be an integer >= 1")
		}
		q.Set("page", strconv.Itoa(opts.Page))
	}

	if opts.PerPage != 0 {
		if opts.PerPage < 1 || opts.PerPage > 100 {
			return nil, cli.Validationf("per_page must be an integer between 1 and 100")
		}
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	if expand, err := expandQuery(opts.Expand); err != nil {
		return nil, err
	} else if expand != "" {
		q.Set("expand", expand)
	}

	if opts.Query != "" {
		if strings.TrimSpace(opts.Query) == "" {
			return nil, cli.Validationf("query must be a non-empty string")
		}
		q.Set("query", opts.Query)
	}

	return q, nil
}

// expandQuery validates expand values and joins them into a single
// comma-separated query value. An empty set omits the parameter entirely.
func expandQuery(expand []string) (string, error) {
	if len(expand) == 0 {
		return "", nil
	}

	var invalid []string
	for _, v := range expand {
		ok := false
		for _, valid := range validExpandValues {
			if v == valid {
				ok = true
				break
			}
		}
		if !ok {
			invalid = append(invalid, v)
		}
	}

	if len(invalid) > 0 {
		return "", cli.Validationf("invalid expand values: %s. Allowed values are: %s",
			strings.Join(invalid, ", "), strings.Join(validExpandValues, ", "))
	}

	return strings.Join(expand, ","), nil
}

// Validate checks a registration/transfer request client-side, mirroring the
// registry's constraints so malformed input never reaches the wire.
func (p *RegistrationParams) Validate() error {
	if p.Domain == "" {
		return cli.Validationf("domain name is required")
	}

	if len(p.Domain) < minDomainLength || len(p.Domain) > maxDomainLength {
		return cli.Validationf("domain name must be between %d and %d characters", minDomainLength, maxDomainLength)
	}

	// Hosted DNS and custom nameservers are mutually exclusive.
	if p.IsUsingHostedDNS != nil && len(p.Nameservers) > 0 {
		return cli.Validationf("cannot provide nameservers when using hosted DNS")
	}
	if p.IsUsingHostedDNS == nil && len(p.Nameservers) > 0 && len(p.Nameservers) < minNameservers {
		return cli.Validationf("at least two nameservers are required when not using hosted DNS")
	}

	// WHOIS privacy hides contact data, so explicit contacts conflict.
	if p.IsWhoisPrivacyEnabled != nil && len(p.Contacts) > 0 {
		return cli.Validationf("cannot provide contacts when WHOIS privacy is enabled")
	}

	for _, key := range p.DNSSECKeys {
		if err := key.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (k *DNSSECKey) validate() error {
	if k.PublicKey == "" {
		return cli.Validationf("public key is required for DNSSEC keys")
	}
	if k.Algorithm != nil && !dnssecAlgorithms[*k.Algorithm] {
		return cli.Validationf("invalid DNSSEC algorithm")
	}
	if k.Flags != nil && *k.Flags != 256 && *k.Flags != 257 {
		return cli.Validationf("invalid DNSSEC flags. Must be 256 (ZSK) or 257 (KSK)")
	}
	if k.Protocol != nil && *k.Protocol != 3 {
		return cli.Validationf("invalid DNSSEC protocol. Must be 3")
	}
	return nil
}
