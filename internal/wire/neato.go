package wire

import "fmt"

// packetStartByte and packetStartIndex mark the beginning of a scan
// revolution: packet 0 in the 90-packet layout begins with this pair.
const (
	packetStartByte  = 0xFA
	packetStartIndex = 0xA0
)

// RawBeam is one of the four beams carried by a single 22-byte scan packet.
type RawBeam struct {
	// Index is the beam's position within the 360-beam revolution
	// (0 <= Index < 360).
	Index    int
	Distance uint16
	Strength uint16
	Valid    bool
}

// ParseScanPackets validates and decodes the neato lidar's raw scan_data
// payload (90 packets of 22 bytes) into its constituent beams. Packets that
// fail their checksum are silently dropped, per the sensor's own framing
// contract; the returned slice therefore may hold fewer than 360 beams.
func ParseScanPackets(data [ScanDataSize]byte) ([]RawBeam, error) {
	if data[0] != packetStartByte || data[1] != packetStartIndex {
		return nil, fmt.Errorf("wire: scan_data does not start with %#02x %#02x header", packetStartByte, packetStartIndex)
	}

	beams := make([]RawBeam, 0, 360)
	for p := 0; p < 90; p++ {
		packet := data[p*22 : p*22+22]
		if packet[0] != packetStartByte {
			continue
		}
		if !validPacketChecksum(packet) {
			continue
		}

		index := int(packet[1]) - packetStartIndex
		if index < 0 || index >= 90 {
			continue
		}

		for beam := 0; beam < 4; beam++ {
			b := packet[4+beam*4 : 4+beam*4+4]
			beams = append(beams, RawBeam{
				Index:    index*4 + beam,
				Valid:    b[1]&0x80 == 0,
				Distance: uint16(b[0]) | (uint16(b[1])&0x3F)<<8,
				Strength: uint16(b[3])<<8 | uint16(b[2]),
			})
		}
	}

	return beams, nil
}

// validPacketChecksum reproduces the neato lidar's 16-bit checksum over the
// first 20 bytes of a 22-byte packet, compared against the trailing 2-byte
// checksum word.
func validPacketChecksum(packet []byte) bool {
	var words [10]uint32
	for i := range words {
		words[i] = uint32(packet[2*i]) | uint32(packet[2*i+1])<<8
	}

	var chk32 uint32
	for _, w := range words {
		chk32 = (chk32 << 1) + w
	}
	checksum := (chk32 & 0x7FFF) + (chk32 >> 15)
	checksum &= 0x7FFF

	want := uint32(packet[20]) | uint32(packet[21])<<8
	return checksum == want
}
