// Package google loads and persists the OAuth token the Gmail send client
// authenticates with. Tokens are cached as JSON under the user config
// directory and refreshed tokens are written back.
package google
