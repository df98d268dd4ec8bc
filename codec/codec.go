// Package codec implements the obfuscation scheme and message framing of the
// credential configuration channel. Payloads are XORed byte-wise against the
// device name before they go over the air, so a casual sniffer doesn't see
// credentials in the clear. This is obfuscation, not encryption.
package codec

import (
	"github.com/go-errors/errors"
)

// Obfuscate XORs data against key, cycling the key to match the data length.
// The operation is self-inverse, so it is used for both encoding and decoding.
func Obfuscate(data []byte, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.Errorf("obfuscation key must not be empty")
	}

	out := make([]byte, len(data))

	keyIndex := 0
	for i := range data {
		out[i] = data[i] ^ key[keyIndex]
		keyIndex++
		if keyIndex >= len(key) {
			keyIndex = 0
		}
	}

	return out, nil
}
