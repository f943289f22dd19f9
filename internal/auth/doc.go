// Package auth guards the daemon's invocation endpoint with static bearer
// tokens. In disabled mode every caller is accepted as "anonymous".
package auth
