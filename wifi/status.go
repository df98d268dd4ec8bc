package wifi

import "encoding/binary"

// Selected names the candidate access point currently serving the
// connection.
type Selected int

const (
	SelectedNone Selected = iota
	SelectedPrimary
	SelectedSecondary
)

func (s Selected) String() string {
	switch s {
	case SelectedNone:
		return "none"
	case SelectedPrimary:
		return "primary"
	case SelectedSecondary:
		return "secondary"
	default:
		return "invalid"
	}
}

// Status words pushed over the status characteristic.
const (
	statusWordDisconnected uint16 = 0x0000
	statusWordPrimary      uint16 = 0x0001
	statusWordSecondary    uint16 = 0x0002
)

// connectionStatus is the shared connection state. All access goes through
// Manager.statusMtx; the asynchronous network-event handlers write it and the
// publisher and reconcile step read it.
type connectionStatus struct {
	isConnected   bool
	selected      Selected
	connectedSsid string
}

// word derives the 2-byte status code. A connection whose ssid matches
// neither candidate deliberately reports as disconnected, see statusWord
// handling in the event handlers.
func (s *connectionStatus) word() uint16 {
	if !s.isConnected {
		return statusWordDisconnected
	}

	switch s.selected {
	case SelectedPrimary:
		return statusWordPrimary
	case SelectedSecondary:
		return statusWordSecondary
	default:
		return statusWordDisconnected
	}
}

// encodeStatusWord renders the status word in its little-endian wire form.
func encodeStatusWord(word uint16) []byte {
	value := make([]byte, 2)
	binary.LittleEndian.PutUint16(value, word)

	return value
}
