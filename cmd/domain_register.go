package cmd

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"chief/internal/cli"
	"chief/internal/domainapi"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// domainNamePattern matches a bare domain name with a TLD of at least two
// letters. Length bounds are checked separately.
var domainNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]?\.[a-zA-Z]{2,}$`)

// maxNameservers is the registry's per-domain nameserver limit.
const maxNameservers = 13

// contactTypes are the WHOIS roles assignable on a registration, in the
// order they are asked.
var contactTypes = []string{"owner", "admin", "tech", "billing"}

// newDomainRegisterCmd creates the interactive registration/transfer command.
func newDomainRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [domain]",
		Short: "Register or transfer a domain",
		Long: `Register a new domain or transfer an existing one to Domain Chief.

The command walks through the registration interactively: it checks
availability, collects DNS configuration, WHOIS contacts or privacy, and
optional DNSSEC keys, then submits the request after a final confirmation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDomainRegister,
	}
}

func runDomainRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	prompter := cli.NewPrompter()

	client, err := newDomainClient()
	if err != nil {
		return err
	}

	var domain string
	if len(args) > 0 {
		domain = args[0]
		if err := validateDomainName(domain); err != nil {
			return err
		}
	} else {
		domain, err = prompter.Text("Domain to register", true, validateDomainName)
		if err != nil {
			return err
		}
	}

	params := domainapi.RegistrationParams{Domain: domain}

	s := newSpinner(fmt.Sprintf("Checking availability of %s...", domain))
	s.Start()
	status, err := client.CheckAvailability(ctx, domain)
	s.Stop()
	if err != nil {
		return err
	}

	if status != domainapi.AvailabilityFree {
		fmt.Printf("%s is not available for registration (status: %s).\n",
			text.Bold.Sprint(domain), text.FgYellow.Sprint(status))

		transfer, err := prompter.Confirm("Do you want to transfer it to Domain Chief instead?", false)
		if err != nil {
			return err
		}
		if !transfer {
			return nil
		}

		authCode, err := prompter.Text("Transfer authorization code", true, nil)
		if err != nil {
			return err
		}
		params.AuthCode = authCode
	} else {
		fmt.Printf("%s is %s.\n", text.Bold.Sprint(domain), text.FgGreen.Sprint("available"))
	}

	// DNS: hosted DNS and custom nameservers are mutually exclusive, so
	// only one of the two fields is ever populated.
	dnsChoice, err := prompter.Select("How should DNS be handled?", []cli.SelectOption{
		{Value: "hosted", Label: "Use Chief Tools hosted DNS"},
		{Value: "custom", Label: "Use custom nameservers"},
	})
	if err != nil {
		return err
	}

	if dnsChoice == "hosted" {
		hosted := true
		params.IsUsingHostedDNS = &hosted
	} else {
		params.Nameservers, err = collectNameservers(prompter)
		if err != nil {
			return err
		}
	}

	// WHOIS privacy replaces explicit contacts.
	privacy, err := prompter.Confirm("Enable WHOIS privacy?", true)
	if err != nil {
		return err
	}
	if privacy {
		enabled := true
		params.IsWhoisPrivacyEnabled = &enabled
	} else {
		params.Contacts, err = collectContacts(cmd, client, prompter)
		if err != nil {
			return err
		}
	}

	wantDNSSEC, err := prompter.Confirm("Add DNSSEC keys?", false)
	if err != nil {
		return err
	}
	if wantDNSSEC {
		params.DNSSECKeys, err = collectDNSSECKeys(prompter)
		if err != nil {
			return err
		}
	}

	action := "register"
	if params.AuthCode != "" {
		action = "transfer"
	}
	proceed, err := prompter.Confirm(fmt.Sprintf("Submit %s request for %s?", action, domain), false)
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Aborted.")
		return nil
	}

	s = newSpinner(fmt.Sprintf("Submitting %s request...", action))
	s.Start()
	result, err := client.RegisterOrTransfer(ctx, params)
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Println(text.FgGreen.Sprintf("Request for %s submitted successfully.", result.Name))
	renderDomainTable([]domainapi.Domain{*result}, true)
	return nil
}

// validateDomainName checks a bare domain name before it is sent anywhere.
func validateDomainName(domain string) error {
	if len(domain) < 3 || len(domain) > 63 {
		return cli.Validationf("domain name must be between 3 and 63 characters")
	}
	if !domainNamePattern.MatchString(domain) {
		return cli.Validationf("invalid domain name %q", domain)
	}
	return nil
}

// collectNameservers asks for at least two custom nameservers, each with
// optional glue records.
func collectNameservers(prompter *cli.Prompter) ([]domainapi.Nameserver, error) {
	fmt.Println("Enter at least two nameservers. Leave the hostname empty to stop.")

	var nameservers []domainapi.Nameserver
	for len(nameservers) < maxNameservers {
		label := fmt.Sprintf("Nameserver %d hostname", len(nameservers)+1)
		required := len(nameservers) < 2

		hostname, err := prompter.Text(label, required, nil)
		if err != nil {
			return nil, err
		}
		if hostname == "" {
			break
		}

		ns := domainapi.Nameserver{Hostname: hostname}

		ns.IPv4, err = prompter.Text("  IPv4 glue record (optional)", false, validateIP(4))
		if err != nil {
			return nil, err
		}
		ns.IPv6, err = prompter.Text("  IPv6 glue record (optional)", false, validateIP(6))
		if err != nil {
			return nil, err
		}

		nameservers = append(nameservers, ns)
	}

	return nameservers, nil
}

// validateIP returns a validator for an IPv4 or IPv6 address.
func validateIP(version int) func(string) error {
	return func(value string) error {
		ip := net.ParseIP(value)
		if ip == nil {
			return fmt.Errorf("%q is not a valid IP address", value)
		}
		if version == 4 && ip.To4() == nil {
			return fmt.Errorf("%q is not an IPv4 address", value)
		}
		if version == 6 && ip.To4() != nil {
			return fmt.Errorf("%q is not an IPv6 address", value)
		}
		return nil
	}
}

// collectContacts lets the user pick a stored WHOIS contact handle per role.
// Roles left unassigned fall back to the server-side defaults.
func collectContacts(cmd *cobra.Command, client *domainapi.Client, prompter *cli.Prompter) (map[string]string, error) {
	s := newSpinner("Fetching contacts...")
	s.Start()
	list, err := client.ListContacts(cmd.Context(), domainapi.ListOptions{PerPage: 100})
	s.Stop()
	if err != nil {
		return nil, err
	}

	if len(list.Contacts) == 0 {
		fmt.Println(text.FgYellow.Sprint("No contacts found; server defaults will be used."))
		return nil, nil
	}

	options := []cli.SelectOption{{Value: "", Label: "Skip (use default)"}}
	for _, c := range list.Contacts {
		options = append(options, cli.SelectOption{Value: c.Handle, Label: contactLabel(c)})
	}

	contacts := make(map[string]string)
	for _, role := range contactTypes {
		handle, err := prompter.Select(fmt.Sprintf("Contact for the %s role", role), options)
		if err != nil {
			return nil, err
		}
		if handle != "" {
			contacts[role] = handle
		}
	}

	if len(contacts) == 0 {
		return nil, nil
	}
	return contacts, nil
}

// contactLabel formats a contact for the selection list.
func contactLabel(c domainapi.Contact) string {
	var b strings.Builder
	b.WriteString(c.FirstName + " " + c.LastName)
	if c.CompanyName != "" {
		b.WriteString(" - " + c.CompanyName)
	}
	b.WriteString(fmt.Sprintf(" (%s) - %s", c.Email, c.Handle))
	if c.IsDefault {
		b.WriteString(" [Default]")
	}
	return b.String()
}

// collectDNSSECKeys asks for one or more DNSSEC public keys.
func collectDNSSECKeys(prompter *cli.Prompter) ([]domainapi.DNSSECKey, error) {
	algorithmOptions := []cli.SelectOption{
		{Value: "8", Label: "8 - RSA/SHA-256"},
		{Value: "10", Label: "10 - RSA/SHA-512"},
		{Value: "13", Label: "13 - ECDSA P-256/SHA-256"},
		{Value: "14", Label: "14 - ECDSA P-384/SHA-384"},
		{Value: "15", Label: "15 - Ed25519"},
		{Value: "16", Label: "16 - Ed448"},
	}

	var keys []domainapi.DNSSECKey
	for {
		publicKey, err := prompter.Text("DNSSEC public key", true, nil)
		if err != nil {
			return nil, err
		}

		algoValue, err := prompter.Select("Algorithm", algorithmOptions)
		if err != nil {
			return nil, err
		}
		algorithm, _ := strconv.Atoi(algoValue)

		flagsValue, err := prompter.Select("Key type", []cli.SelectOption{
			{Value: "257", Label: "257 - Key Signing Key (KSK)"},
			{Value: "256", Label: "256 - Zone Signing Key (ZSK)"},
		})
		if err != nil {
			return nil, err
		}
		flags, _ := strconv.Atoi(flagsValue)

		protocol := 3
		keys = append(keys, domainapi.DNSSECKey{
			PublicKey: publicKey,
			Algorithm: &algorithm,
			Flags:     &flags,
			Protocol:  &protocol,
		})

		more, err := prompter.Confirm("Add another DNSSEC key?", false)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	return keys, nil
}
