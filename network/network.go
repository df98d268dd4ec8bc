// Package network is the narrow surface of the platform network stack the
// daemon talks to. Association, DHCP and RSSI measurement live behind it.
package network

// Encryption is the reported authentication mode of a scanned network. The
// names follow the mode table of the original firmware.
type Encryption string

const (
	EncryptionOpen           Encryption = "open"
	EncryptionWep            Encryption = "WEP"
	EncryptionWpaPsk         Encryption = "WPA_PSK"
	EncryptionWpa2Psk        Encryption = "WPA2_PSK"
	EncryptionWpaWpa2Psk     Encryption = "WPA_WPA2_PSK"
	EncryptionWpa2Enterprise Encryption = "WPA2_ENTERPRISE"
)

// Wifi is one discovered network of a single scan.
type Wifi struct {
	Ssid       string
	Signal     int // dBm
	Encryption Encryption
}

// AddressAcquiredEvent fires when the link is up and an address was obtained.
// Ssid carries the currently associated network.
type AddressAcquiredEvent struct {
	Ssid string
}

// ConnectionLostEvent fires when the association is gone.
type ConnectionLostEvent struct{}

// Event is either an AddressAcquiredEvent or a ConnectionLostEvent.
type Event interface{}

// Client delivers asynchronous network events to one subscriber.
type Client struct {
	Events     chan Event
	Id         uint32
	cancelChan chan struct{}
	network    Network
}

func (c *Client) Cancel() {
	c.network.deleteClient(c.Id)

	close(c.cancelChan)
}

type Network interface {
	Start() error
	Stop() error
	// Scan blocks until the platform scan completes or its timeout elapses.
	// Zero discovered networks is a valid result, not an error.
	Scan() ([]*Wifi, error)
	Connect(ssid string, psk string) error
	Disconnect() error
	Subscribe() *Client
	deleteClient(uint32)
}
