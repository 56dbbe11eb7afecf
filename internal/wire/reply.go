package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ReplyKind tags the variant of a Reply.
type ReplyKind uint8

const (
	ReplyPong ReplyKind = iota
	ReplyScanFrame
)

// ScanDataSize is the fixed size of the neato lidar's raw scan payload: 90
// packets of 22 bytes each.
const ScanDataSize = 90 * 22

// Reply is a robot-to-host message.
type Reply struct {
	Kind ReplyKind

	// ScanFrame
	ScanData [ScanDataSize]byte
	Odometry [2]float32
	Rpm      uint16
}

// EncodeReply serialises a Reply as a tag byte followed by its
// variant-specific fields.
func EncodeReply(r Reply) []byte {
	buf := []byte{byte(r.Kind)}
	switch r.Kind {
	case ReplyPong:
	case ReplyScanFrame:
		buf = append(buf, r.ScanData[:]...)
		buf = protowire.AppendFixed32(buf, float32bits(r.Odometry[0]))
		buf = protowire.AppendFixed32(buf, float32bits(r.Odometry[1]))
		buf = protowire.AppendVarint(buf, uint64(r.Rpm))
	}
	return buf
}

// DecodeReply parses a buffer produced by EncodeReply.
func DecodeReply(b []byte) (Reply, error) {
	if len(b) < 1 {
		return Reply{}, fmt.Errorf("wire: reply buffer empty")
	}
	kind := ReplyKind(b[0])
	rest := b[1:]

	switch kind {
	case ReplyPong:
		return Reply{Kind: kind}, nil
	case ReplyScanFrame:
		if len(rest) < ScanDataSize {
			return Reply{}, fmt.Errorf("wire: reply scan_data truncated: need %d bytes, have %d", ScanDataSize, len(rest))
		}
		var reply Reply
		reply.Kind = kind
		copy(reply.ScanData[:], rest[:ScanDataSize])
		rest = rest[ScanDataSize:]

		odo0, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Reply{}, fmt.Errorf("wire: decode ScanFrame.odometry[0]: %w", protowire.ParseError(n))
		}
		rest = rest[n:]
		odo1, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Reply{}, fmt.Errorf("wire: decode ScanFrame.odometry[1]: %w", protowire.ParseError(n))
		}
		rest = rest[n:]
		rpm, n := protowire.ConsumeVarint(rest)
		if n < 0 {
			return Reply{}, fmt.Errorf("wire: decode ScanFrame.rpm: %w", protowire.ParseError(n))
		}

		reply.Odometry = [2]float32{float32frombits(odo0), float32frombits(odo1)}
		reply.Rpm = uint16(rpm)
		return reply, nil
	default:
		return Reply{}, fmt.Errorf("wire: unknown reply kind %d", kind)
	}
}

// FrameReply length-prefixes an encoded Reply with a protowire varint.
func FrameReply(r Reply) []byte {
	payload := EncodeReply(r)
	buf := protowire.AppendVarint(nil, uint64(len(payload)))
	return append(buf, payload...)
}

// ConsumeFramedReply reads one length-prefixed Reply off the front of b and
// returns it along with the number of bytes consumed.
func ConsumeFramedReply(b []byte) (Reply, int, error) {
	length, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return Reply{}, 0, fmt.Errorf("wire: decode reply frame length: %w", protowire.ParseError(n))
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return Reply{}, 0, fmt.Errorf("wire: reply frame truncated: need %d bytes, have %d", length, len(b))
	}
	r, err := DecodeReply(b[:length])
	if err != nil {
		return Reply{}, 0, err
	}
	return r, n + int(length), nil
}
