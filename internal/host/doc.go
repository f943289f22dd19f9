// Package host defines the boundary between the agent and the runtime that
// executes it. The agent only ever talks to a Host: it reads its input buffer,
// writes exactly one output buffer, emits log lines and delegates model and
// blockchain calls. Local is the in-process implementation used by the CLI
// runner and the HTTP daemon.
package host
