// Package secrets resolves "${secret:name}" references in the auth secrets.
//
// Either auth secret may be written as a reference instead of a literal:
//
//	auth:
//	  secrets_dir: /run/secrets
//	  inbound_secret: ${secret:guardian-secret}
//	  outbound_secret: ${secret:nightscout-api-secret}
//
// A reference is looked up first as a file in auth.secrets_dir, then as the
// environment variable GLUCOBRIDGE_SECRET_<NAME> with hyphens turned into
// underscores. References are resolved once, at startup.
package secrets
