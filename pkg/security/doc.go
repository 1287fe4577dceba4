/*
Package security groups the listener and credential hardening used by
glucobridge.

  - tls: server TLS configuration and certificate hot reload
  - secrets: "${secret:name}" resolution for the auth secrets
*/
package security
