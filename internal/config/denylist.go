package config

// DefaultDenylistDomains lists sensitive sites that are never auto-captured:
// banks, password managers, sign-in pages and health portals. Entries also
// match their subdomains.
func DefaultDenylistDomains() []string {
	return []string{
		// money
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",
		"capitalone.com",
		"schwab.com",
		"fidelity.com",
		"paypal.com",
		"venmo.com",
		"coinbase.com",

		// credentials
		"1password.com",
		"lastpass.com",
		"bitwarden.com",
		"accounts.google.com",
		"login.microsoftonline.com",
		"okta.com",

		// health and government
		"mychart.com",
		"healthcare.gov",
		"irs.gov",
		"login.gov",
	}
}
