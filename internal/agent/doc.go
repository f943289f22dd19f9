// Package agent implements the invocation logic of the UOMI agent. One
// invocation reads a chat transcript from the host, decides whether the
// latest user message asks about a wallet, and answers either with a balance
// report assembled from the host's blockchain proxy or with the reply of the
// host's language model. Exactly one output is written per invocation.
//
// The agent keeps no state between invocations; everything it needs arrives
// through the host.Host it is run against.
package agent
