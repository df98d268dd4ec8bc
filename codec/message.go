package codec

import (
	"encoding/json"

	"github.com/go-errors/errors"
)

// ErrMalformedMessage marks an inbound payload that decoded fine but matches
// none of the known frame shapes. Such payloads are discarded by the caller.
var ErrMalformedMessage = errors.Errorf("malformed configuration message")

// Credentials is the four-field credential-set frame. A frame is only a
// credential set when all four fields are present.
type Credentials struct {
	SsidPrim string `json:"ssidPrim"`
	PwPrim   string `json:"pwPrim"`
	SsidSec  string `json:"ssidSec"`
	PwSec    string `json:"pwSec"`
}

// Message is the decoded form of one inbound configuration write. Exactly one
// of the three fields is set.
type Message struct {
	Credentials *Credentials
	Erase       bool
	Reset       bool
}

// frame mirrors the wire shape loosely enough to detect which keys were sent.
type frame struct {
	SsidPrim *string `json:"ssidPrim"`
	PwPrim   *string `json:"pwPrim"`
	SsidSec  *string `json:"ssidSec"`
	PwSec    *string `json:"pwSec"`
	Erase    *bool   `json:"erase"`
	Reset    *bool   `json:"reset"`
}

// ParseMessage decodes an already de-obfuscated payload into a Message.
// Returns ErrMalformedMessage for anything that is not a credential set,
// an erase directive or a reset directive.
func ParseMessage(plaintext []byte) (*Message, error) {
	var f frame

	if err := json.Unmarshal(plaintext, &f); err != nil {
		return nil, ErrMalformedMessage
	}

	switch {
	case f.SsidPrim != nil && f.PwPrim != nil && f.SsidSec != nil && f.PwSec != nil:
		return &Message{
			Credentials: &Credentials{
				SsidPrim: *f.SsidPrim,
				PwPrim:   *f.PwPrim,
				SsidSec:  *f.SsidSec,
				PwSec:    *f.PwSec,
			},
		}, nil
	case f.Erase != nil:
		return &Message{Erase: true}, nil
	case f.Reset != nil:
		return &Message{Reset: true}, nil
	}

	return nil, ErrMalformedMessage
}

// DecodeMessage de-obfuscates a payload with the given key and parses it.
func DecodeMessage(payload []byte, key []byte) (*Message, error) {
	plaintext, err := Obfuscate(payload, key)
	if err != nil {
		return nil, errors.Errorf("could not decode payload: %v", err)
	}

	return ParseMessage(plaintext)
}

// EncodeCredentials marshals a credential set into the four-field frame and
// obfuscates it for the read-back direction of the configuration channel.
func EncodeCredentials(creds *Credentials, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, errors.Errorf("could not marshal credentials: %v", err)
	}

	return Obfuscate(plaintext, key)
}
