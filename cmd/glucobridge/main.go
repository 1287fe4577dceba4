// glucobridge relays glucose entries between the GuardianMonitor app and a
// Nightscout-compatible upstream.
//
// It authenticates the app with a shared secret, repairs entry timestamps,
// presents the upstream's own credential and relays the upstream reply
// unchanged.
//
// Usage:
//
//	# Start from environment variables only (TARGET_BASE, INBOUND_SECRET, ...)
//	glucobridge run
//
//	# Start with a configuration file
//	glucobridge run --config /etc/glucobridge/config.yaml
//
//	# Check configuration without starting
//	glucobridge validate --config config.yaml
//
//	# Print the SHA-1 form of a secret, as sent to the upstream
//	glucobridge hash "my secret"
package main

func main() {
	Execute()
}
