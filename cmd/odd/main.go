// Command odd evaluates personalization rules on device.
//
// Usage:
//
//	# Decide for a page with a local ruleset
//	odd decide --rules rules.json --url https://luma.com/men
//
//	# Decide for a full event
//	odd decide --rules rules.json --event event.json --output json
//
//	# Generate an ECID, or derive one from a first-party id
//	odd ecid
//	odd ecid --org 906E3A095DC834230A495FD6@AdobeOrg --fpid fp-123
//
//	# Validate or download a ruleset
//	odd rules validate rules.json
//	odd rules fetch --config odd.yaml --out rules.json
//
//	# Serve decisions over HTTP
//	odd serve --config odd.yaml
package main

func main() {
	Execute()
}
