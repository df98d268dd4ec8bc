package wpa

import "github.com/godbus/dbus/v5"

// Network is a handle to a configured supplicant network, as returned by
// AddNetwork and consumed by SelectNetwork.
type Network struct {
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}
