// Package agent defines the agent capability contract, the message
// envelope agents exchange, and the Registry that maps agent names to
// executable handles in deterministic registration order.
package agent
