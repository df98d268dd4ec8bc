package identity

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHardwareAddr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ESP32-AABBCCDDEEFF",
		FromHardwareAddr(net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}))

	assert.Equal(t, "ESP32-0102030405",
		FromHardwareAddr(net.HardwareAddr{0x01, 0x02, 0x03, 0x04, 0x05}))
}
