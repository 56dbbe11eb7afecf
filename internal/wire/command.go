// Package wire implements the binary encoding for messages exchanged with
// the embedded robot: a command/reply enum pair framed with a varint length
// prefix, and the neato lidar's raw scan packet layout.
//
// This package imports nothing from the rest of the module; it is a leaf
// codec with no transport of its own (sockets and serial links are out of
// scope here).
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CommandKind tags the variant of a Command.
type CommandKind uint8

const (
	CommandPing CommandKind = iota
	CommandNeatoOn
	CommandNeatoOff
	CommandDrive
	CommandSetDownsampling
	CommandSetMotorPiParams
)

// Command is a host-to-robot message. Only the fields relevant to Kind are
// populated.
type Command struct {
	Kind CommandKind

	// Drive
	Left, Right float32

	// SetDownsampling
	Every uint32

	// SetMotorPiParams
	Kp, Ki float32
}

// EncodeCommand serialises a Command as a tag byte followed by its
// variant-specific fields, each field varint/fixed32-encoded via protowire,
// with no outer framing.
func EncodeCommand(c Command) []byte {
	buf := []byte{byte(c.Kind)}
	switch c.Kind {
	case CommandPing, CommandNeatoOn, CommandNeatoOff:
	case CommandDrive:
		buf = protowire.AppendFixed32(buf, float32bits(c.Left))
		buf = protowire.AppendFixed32(buf, float32bits(c.Right))
	case CommandSetDownsampling:
		buf = protowire.AppendVarint(buf, uint64(c.Every))
	case CommandSetMotorPiParams:
		buf = protowire.AppendFixed32(buf, float32bits(c.Kp))
		buf = protowire.AppendFixed32(buf, float32bits(c.Ki))
	}
	return buf
}

// DecodeCommand parses a buffer produced by EncodeCommand.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < 1 {
		return Command{}, fmt.Errorf("wire: command buffer empty")
	}
	kind := CommandKind(b[0])
	rest := b[1:]

	switch kind {
	case CommandPing, CommandNeatoOn, CommandNeatoOff:
		return Command{Kind: kind}, nil
	case CommandDrive:
		left, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Command{}, fmt.Errorf("wire: decode Drive.left: %w", protowire.ParseError(n))
		}
		rest = rest[n:]
		right, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Command{}, fmt.Errorf("wire: decode Drive.right: %w", protowire.ParseError(n))
		}
		return Command{Kind: kind, Left: float32frombits(left), Right: float32frombits(right)}, nil
	case CommandSetDownsampling:
		every, n := protowire.ConsumeVarint(rest)
		if n < 0 {
			return Command{}, fmt.Errorf("wire: decode SetDownsampling.every: %w", protowire.ParseError(n))
		}
		return Command{Kind: kind, Every: uint32(every)}, nil
	case CommandSetMotorPiParams:
		kp, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Command{}, fmt.Errorf("wire: decode SetMotorPiParams.kp: %w", protowire.ParseError(n))
		}
		rest = rest[n:]
		ki, n := protowire.ConsumeFixed32(rest)
		if n < 0 {
			return Command{}, fmt.Errorf("wire: decode SetMotorPiParams.ki: %w", protowire.ParseError(n))
		}
		return Command{Kind: kind, Kp: float32frombits(kp), Ki: float32frombits(ki)}, nil
	default:
		return Command{}, fmt.Errorf("wire: unknown command kind %d", kind)
	}
}

// FrameCommand length-prefixes an encoded Command with a protowire varint,
// suitable for streaming over a byte-oriented transport.
func FrameCommand(c Command) []byte {
	payload := EncodeCommand(c)
	buf := protowire.AppendVarint(nil, uint64(len(payload)))
	return append(buf, payload...)
}

// ConsumeFramedCommand reads one length-prefixed Command off the front of b
// and returns it along with the number of bytes consumed.
func ConsumeFramedCommand(b []byte) (Command, int, error) {
	length, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return Command{}, 0, fmt.Errorf("wire: decode command frame length: %w", protowire.ParseError(n))
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return Command{}, 0, fmt.Errorf("wire: command frame truncated: need %d bytes, have %d", length, len(b))
	}
	c, err := DecodeCommand(b[:length])
	if err != nil {
		return Command{}, 0, err
	}
	return c, n + int(length), nil
}
