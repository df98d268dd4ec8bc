// Package identity derives the stable device name. The name doubles as the
// BLE advertised name and as the obfuscation key material of the
// configuration channel, so it must stay constant for the process lifetime.
package identity

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/go-errors/errors"
)

// prefix of the derived device name, kept wire-compatible with the clients
// that pair against the original firmware.
const prefix = "ESP32-"

// Derive builds the device name from the first hardware address found on a
// non-loopback interface, formatted as uppercase hex.
func Derive() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errors.Errorf("could not list interfaces: %v", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		if len(iface.HardwareAddr) == 0 {
			continue
		}

		return FromHardwareAddr(iface.HardwareAddr), nil
	}

	return "", errors.Errorf("no interface with a hardware address found")
}

// FromHardwareAddr formats a hardware address into the device name.
func FromHardwareAddr(addr net.HardwareAddr) string {
	return prefix + strings.ToUpper(hex.EncodeToString(addr))
}
