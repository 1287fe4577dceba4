// Package config provides configuration management for glucobridge.
//
// Configuration is read once at startup from an optional YAML file and the
// process environment, filled with defaults, validated, and then handed to
// the rest of the program as an explicit *Config value. There is no global
// configuration; nothing re-reads the environment mid-request.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("glucobridge.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("glucobridge.yaml")
//
//  3. From the environment alone:
//     cfg, err := config.LoadFromEnv()
//
// # Environment Variables
//
// Prefixed variables follow GLUCOBRIDGE_SECTION_FIELD, for example
// GLUCOBRIDGE_UPSTREAM_BASE_URL or GLUCOBRIDGE_AUTH_INBOUND_SECRET.
//
// The unprefixed names used by existing deployments are also honoured:
//
//   - TARGET_BASE            upstream.base_url
//   - INBOUND_SECRET         auth.inbound_secret
//   - OUTBOUND_SECRET        auth.outbound_secret
//   - NIGHTSCOUT_API_SECRET  auth.outbound_secret (when OUTBOUND_SECRET is unset)
//   - PORT                   port of proxy.listen_address
//
// # Precedence
//
//  1. Values from the YAML file
//  2. Unprefixed environment variables
//  3. GLUCOBRIDGE_* environment variables
//  4. Defaults for anything still unset
//  5. Validation (fails fast if invalid)
//
// The only required setting is upstream.base_url.
//
// Either secret may be written as a ${secret:name} reference. The reference
// is kept verbatim here; pkg/security/secrets resolves it against
// auth.secrets_dir and GLUCOBRIDGE_SECRET_<NAME> before the server starts.
package config
