// Package identity generates and persists the node keypair.
package identity
