// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"levels/internal/level"
	applog "levels/internal/log"
	"levels/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Frame Index       | uint32         | 4            | Index of the frame      |
| Frame Start       | uint64         | 8            | First sample of frame   |
| Level             | float32        | 4            | Frame energy^0.67       |
+-----------------------------------------------------------------------------+
*/

// PacketSize is the size in bytes of one frame packet.
const PacketSize = 4 + 8 + 4 + 8 + 4

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is the decoded form of one UDP frame packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Frame     level.Frame
}

// UDPPublisher packs each frame into the binary format above and sends it
// through a UDPSender. It implements transport.Transport.
type UDPPublisher struct {
	sender *UDPSender

	mu           sync.Mutex    // Serialises packing; protects the fields below.
	sequenceNum  uint32        // Monotonically increasing sequence number for packets.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
	now          func() time.Time
}

// NewUDPPublisher creates a publisher on top of sender.
func NewUDPPublisher(sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	applog.Infof("UDPPublisher: Initializing (%d byte packets)", PacketSize)

	buf := new(bytes.Buffer)
	buf.Grow(PacketSize)
	return &UDPPublisher{
		sender:       sender,
		packetBuffer: buf,
		now:          time.Now,
	}, nil
}

// Send packs f and transmits it.
func (p *UDPPublisher) Send(f level.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := EncodePacket(p.packetBuffer, Packet{
		Sequence:  p.sequenceNum,
		Timestamp: p.now().UnixNano(),
		Frame:     f,
	}); err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", f.Index, err)
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (frame %d)", p.sequenceNum, f.Index)
	return nil
}

// Sequence returns the sequence number of the last packet built.
func (p *UDPPublisher) Sequence() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequenceNum
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called after %d packets", p.Sequence())
	return p.sender.Close()
}

// EncodePacket writes pkt to buf in network byte order.
func EncodePacket(buf *bytes.Buffer, pkt Packet) error {
	fields := []any{
		pkt.Sequence,
		pkt.Timestamp,
		uint32(pkt.Frame.Index),
		uint64(pkt.Frame.Start),
		pkt.Frame.Level,
	}
	for _, v := range fields {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < PacketSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	var raw struct {
		Sequence  uint32
		Timestamp int64
		Index     uint32
		Start     uint64
		Level     float32
	}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &raw); err != nil {
		return Packet{}, err
	}
	return Packet{
		Sequence:  raw.Sequence,
		Timestamp: raw.Timestamp,
		Frame: level.Frame{
			Index: int(raw.Index),
			Start: int(raw.Start),
			Level: raw.Level,
		},
	}, nil
}

// Ensure UDPPublisher satisfies the transport interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
