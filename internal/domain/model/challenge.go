// Package model contains domain models passed between layers.
package model

// Challenge is a published challenge. Immutable once published.
type Challenge struct {
	ID   string `json:"id" koanf:"id"`
	Name string `json:"name" koanf:"name"`

	// Signed-hash parameters. PublicKey is base64 Ed25519, Salt is base64
	// and MemLimit is in bytes.
	PublicKey string `json:"publicKey" koanf:"public_key"`
	Salt      string `json:"salt" koanf:"salt"`
	OpsLimit  uint64 `json:"opsLimit" koanf:"ops_limit"`
	MemLimit  uint64 `json:"memLimit" koanf:"mem_limit"`

	// Interactive parameters, hex encoded compressed secp256k1 points.
	CombinedPublicKey string `json:"combinedPublicKey,omitempty" koanf:"combined_public_key"`
	ServerPublicKey   string `json:"serverPublicKey,omitempty" koanf:"server_public_key"`
	ServerPrivateKey  string `json:"-" koanf:"server_private_key"`
}

// Interactive reports whether the challenge was provisioned for the
// two-party protocol.
func (c Challenge) Interactive() bool {
	return c.CombinedPublicKey != "" && c.ServerPublicKey != "" && c.ServerPrivateKey != ""
}

// Public returns a copy safe to hand to clients.
func (c Challenge) Public() Challenge {
	c.ServerPrivateKey = ""
	return c
}
