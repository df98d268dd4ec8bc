// Package wpa is a thin client for the D-Bus control interface of
// wpa_supplicant (fi.w1.wpa_supplicant1).
package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName      = "fi.w1.wpa_supplicant1"
	objectPath   = "/fi/w1/wpa_supplicant1"
	ifaceIface   = "fi.w1.wpa_supplicant1.Interface"
	bssIface     = "fi.w1.wpa_supplicant1.BSS"
	getInterface = "fi.w1.wpa_supplicant1.GetInterface"
)

type Wpa struct {
	conn *dbus.Conn
}

func New() *Wpa {
	return &Wpa{}
}

func (w *Wpa) Start() error {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	if err = conn.Auth(nil); err != nil {
		_ = conn.Close()
		return errors.Errorf("could not authenticate: %v", err)
	}

	if err = conn.Hello(); err != nil {
		_ = conn.Close()
		return errors.Errorf("could not send hello: %v", err)
	}

	w.conn = conn

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	if err != nil {
		return errors.Errorf("could not close connection: %v", err)
	}

	w.conn = nil

	return nil
}

func (w *Wpa) GetInterface(name string) (*Interface, error) {
	obj := w.conn.Object(busName, objectPath)

	call := obj.Call(getInterface, 0, name)
	if call.Err != nil {
		return nil, errors.Errorf("could not get interface: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Interface{
		wpa: w,
		obj: w.conn.Object(busName, objPath),
	}, nil
}
