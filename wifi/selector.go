package wifi

import (
	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/wifidb"
)

// SelectionOutcome is the decision which candidate access point to attempt.
type SelectionOutcome struct {
	Found      bool
	UsePrimary bool
}

// Select matches a scan result against the two configured candidates and
// picks one. It records the first observed signal strength per candidate and
// breaks a both-found situation on signal strength, where equal strength
// deliberately resolves to the primary network. Pure function, no I/O.
func Select(wifis []*network.Wifi, creds *wifidb.Credentials) SelectionOutcome {
	var rssiPrim, rssiSec int
	foundPrim := false
	foundSec := false

	for _, wifi := range wifis {
		if !foundPrim && wifi.Ssid == creds.SsidPrim {
			foundPrim = true
			rssiPrim = wifi.Signal
		}

		if !foundSec && wifi.Ssid == creds.SsidSec {
			foundSec = true
			rssiSec = wifi.Signal
		}
	}

	switch {
	case foundPrim && foundSec:
		return SelectionOutcome{Found: true, UsePrimary: rssiPrim >= rssiSec}
	case foundPrim:
		return SelectionOutcome{Found: true, UsePrimary: true}
	case foundSec:
		return SelectionOutcome{Found: true, UsePrimary: false}
	default:
		return SelectionOutcome{}
	}
}
