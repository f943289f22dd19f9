// Package web3 houses blockchain data access for the agent host: the explorer
// and RPC backed clients, the chain registry that selects between them, and
// the blockchain proxy that answers the sandboxed agent's get_balance and
// get_tokens requests.
package web3
