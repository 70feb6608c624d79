package jwtx

// Signer is anything that can sign access token claims.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}
