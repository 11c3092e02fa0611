package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Standard check value for "123456789".
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestUpdateCRC32C_MatchesOneShot(t *testing.T) {
	data := []byte("occupancy bits then item bytes")

	crc := UpdateCRC32C(0, data[:9])
	crc = UpdateCRC32C(crc, data[9:])
	assert.Equal(t, CRC32C(data), crc)
}
