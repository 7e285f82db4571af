package util

import "github.com/ethereum/go-ethereum/crypto"

// Keccak256 hashes data with the Keccak-256 permutation Starknet
// selectors are derived from.
func Keccak256(data []byte) []byte {
	return crypto.Keccak256(data)
}
