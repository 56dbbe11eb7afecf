package wire

import (
	"testing"
)

func TestEncodeDecodeCommandRoundTrip(t *testing.T) {
	cases := []Command{
		{Kind: CommandPing},
		{Kind: CommandNeatoOn},
		{Kind: CommandNeatoOff},
		{Kind: CommandDrive, Left: 0.5, Right: -0.25},
		{Kind: CommandSetDownsampling, Every: 4},
		{Kind: CommandSetMotorPiParams, Kp: 1.2, Ki: 0.03},
	}

	for _, c := range cases {
		encoded := EncodeCommand(c)
		got, err := DecodeCommand(encoded)
		if err != nil {
			t.Fatalf("DecodeCommand(%+v): %v", c, err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
		}
	}
}

func TestDecodeCommandEmptyBufferErrors(t *testing.T) {
	if _, err := DecodeCommand(nil); err == nil {
		t.Fatalf("expected error decoding empty buffer")
	}
}

func TestFrameCommandRoundTrip(t *testing.T) {
	c := Command{Kind: CommandDrive, Left: 1, Right: -1}
	framed := FrameCommand(c)

	// append a second frame to verify ConsumeFramedCommand reports bytes used.
	framed = append(framed, FrameCommand(Command{Kind: CommandPing})...)

	got, n, err := ConsumeFramedCommand(framed)
	if err != nil {
		t.Fatalf("ConsumeFramedCommand: %v", err)
	}
	if got != c {
		t.Fatalf("got %+v, want %+v", got, c)
	}

	second, _, err := ConsumeFramedCommand(framed[n:])
	if err != nil {
		t.Fatalf("ConsumeFramedCommand (second): %v", err)
	}
	if second.Kind != CommandPing {
		t.Fatalf("expected second frame to be Ping, got %+v", second)
	}
}

func TestEncodeDecodeReplyRoundTrip(t *testing.T) {
	pong := Reply{Kind: ReplyPong}
	got, err := DecodeReply(EncodeReply(pong))
	if err != nil {
		t.Fatalf("DecodeReply(Pong): %v", err)
	}
	if got.Kind != ReplyPong {
		t.Fatalf("expected Pong, got %+v", got)
	}

	var scan Reply
	scan.Kind = ReplyScanFrame
	scan.ScanData[0] = packetStartByte
	scan.ScanData[1] = packetStartIndex
	scan.Odometry = [2]float32{1.5, -2.5}
	scan.Rpm = 300

	got, err = DecodeReply(EncodeReply(scan))
	if err != nil {
		t.Fatalf("DecodeReply(ScanFrame): %v", err)
	}
	if got.Odometry != scan.Odometry || got.Rpm != scan.Rpm || got.ScanData != scan.ScanData {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, scan)
	}
}

func TestFrameReplyRoundTrip(t *testing.T) {
	r := Reply{Kind: ReplyPong}
	framed := FrameReply(r)

	got, n, err := ConsumeFramedReply(framed)
	if err != nil {
		t.Fatalf("ConsumeFramedReply: %v", err)
	}
	if got.Kind != ReplyPong {
		t.Fatalf("expected Pong, got %+v", got)
	}
	if n != len(framed) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(framed), n)
	}
}

// buildPacket constructs a single 22-byte neato packet with a valid checksum
// for the given packet index and four beam readings.
func buildPacket(t *testing.T, index byte, beams [4]RawBeam) []byte {
	t.Helper()
	packet := make([]byte, 22)
	packet[0] = packetStartByte
	packet[1] = packetStartIndex + index

	for i, b := range beams {
		off := 4 + i*4
		packet[off] = byte(b.Distance)
		hi := byte(b.Distance>>8) & 0x3F
		if !b.Valid {
			hi |= 0x80
		}
		packet[off+1] = hi
		packet[off+2] = byte(b.Strength)
		packet[off+3] = byte(b.Strength >> 8)
	}

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
	packet[20] = byte(checksum)
	packet[21] = byte(checksum >> 8)

	return packet
}

func TestParseScanPacketsValidRevolution(t *testing.T) {
	var data [ScanDataSize]byte
	beams := [4]RawBeam{
		{Distance: 1000, Strength: 40, Valid: true},
		{Distance: 2000, Strength: 50, Valid: true},
		{Distance: 0, Strength: 0, Valid: false},
		{Distance: 3000, Strength: 60, Valid: true},
	}
	for p := 0; p < 90; p++ {
		copy(data[p*22:p*22+22], buildPacket(t, byte(p), beams))
	}

	parsed, err := ParseScanPackets(data)
	if err != nil {
		t.Fatalf("ParseScanPackets: %v", err)
	}
	if len(parsed) != 360 {
		t.Fatalf("expected 360 beams, got %d", len(parsed))
	}
	if parsed[0].Distance != 1000 || !parsed[0].Valid {
		t.Fatalf("unexpected first beam: %+v", parsed[0])
	}
	if parsed[2].Valid {
		t.Fatalf("expected third beam to be marked invalid")
	}
}

func TestParseScanPacketsRejectsMissingHeader(t *testing.T) {
	var data [ScanDataSize]byte
	if _, err := ParseScanPackets(data); err == nil {
		t.Fatalf("expected error for missing header")
	}
}

func TestParseScanPacketsDropsBadChecksum(t *testing.T) {
	var data [ScanDataSize]byte
	beams := [4]RawBeam{{Distance: 1, Strength: 1, Valid: true}, {}, {}, {}}
	good := buildPacket(t, 0, beams)
	copy(data[0:22], good)

	corrupt := buildPacket(t, 1, beams)
	corrupt[20] ^= 0xFF // break the checksum
	copy(data[22:44], corrupt)

	parsed, err := ParseScanPackets(data)
	if err != nil {
		t.Fatalf("ParseScanPackets: %v", err)
	}
	if len(parsed) != 4 {
		t.Fatalf("expected only the valid packet's 4 beams, got %d", len(parsed))
	}
}
