package wifi

import (
	"testing"

	"github.com/UriShX/wifibled/network"
	"github.com/UriShX/wifibled/wifidb"
	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	creds := &wifidb.Credentials{
		SsidPrim: "A",
		PwPrim:   "pwA",
		SsidSec:  "B",
		PwSec:    "pwB",
		Valid:    true,
	}

	cases := []struct {
		name    string
		wifis   []*network.Wifi
		outcome SelectionOutcome
	}{
		{
			name: "primary stronger",
			wifis: []*network.Wifi{
				{Ssid: "A", Signal: -40},
				{Ssid: "B", Signal: -60},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: true},
		},
		{
			name: "secondary stronger",
			wifis: []*network.Wifi{
				{Ssid: "A", Signal: -60},
				{Ssid: "B", Signal: -40},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: false},
		},
		{
			name: "tie favors primary",
			wifis: []*network.Wifi{
				{Ssid: "A", Signal: -50},
				{Ssid: "B", Signal: -50},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: true},
		},
		{
			name: "only primary present",
			wifis: []*network.Wifi{
				{Ssid: "A", Signal: -70},
				{Ssid: "C", Signal: -30},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: true},
		},
		{
			name: "only secondary present",
			wifis: []*network.Wifi{
				{Ssid: "B", Signal: -30},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: false},
		},
		{
			name: "neither present",
			wifis: []*network.Wifi{
				{Ssid: "C", Signal: -30},
			},
			outcome: SelectionOutcome{},
		},
		{
			name:    "empty scan",
			wifis:   nil,
			outcome: SelectionOutcome{},
		},
		{
			name: "first observation per candidate wins",
			wifis: []*network.Wifi{
				{Ssid: "A", Signal: -80},
				{Ssid: "B", Signal: -50},
				{Ssid: "A", Signal: -20},
			},
			outcome: SelectionOutcome{Found: true, UsePrimary: false},
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, c.outcome, Select(c.wifis, creds))
		})
	}
}
