// Package app wires configuration into a ready-to-run agent: it selects the
// model backend, builds the chain registry and blockchain proxy, and hands
// out a fresh host for every invocation.
package app
