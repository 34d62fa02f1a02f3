// Package wire implements the framed protocol spoken between the relay and
// its clients. Raw stream bytes do not self-delimit, so every frame carries
// a length prefix:
//
//	uint32 big-endian length | uint8 kind | payload
//
// where length counts the kind byte plus the payload. Two kinds exist:
// Text (a display name, a chat line, or a system notice) and Roster (the
// ordered participant names, server to client only).
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"chat-relay/domain"
	"chat-relay/errors"
)

const (
	KindText   byte = 0x01
	KindRoster byte = 0x02

	// MaxPayload bounds a single frame. A longer declared length means the
	// stream is desynchronized and the connection cannot be recovered.
	MaxPayload = 64 << 10
)

// Frame is one decoded unit off the stream.
type Frame struct {
	Kind  byte
	Text  string   // set when Kind == KindText
	Names []string // set when Kind == KindRoster
}

// Reader decodes frames from a stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame blocks for the next frame.
//
// A frame with an unknown kind is consumed entirely and reported as
// errors.ErrUnknownFrame: the stream stays aligned and the caller may keep
// reading. ErrFrameTooLarge and plain IO errors are unrecoverable.
func (r *Reader) ReadFrame() (Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length < 1 {
		return Frame{}, fmt.Errorf("frame length %d: %w", length, errors.ErrUnknownFrame)
	}
	if length > MaxPayload+1 {
		return Frame{}, fmt.Errorf("frame length %d: %w", length, errors.ErrFrameTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return Frame{}, err
	}

	kind, payload := body[0], body[1:]
	switch kind {
	case KindText:
		return Frame{Kind: KindText, Text: string(payload)}, nil
	case KindRoster:
		names, err := decodeNames(payload)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Kind: KindRoster, Names: names}, nil
	default:
		return Frame{}, fmt.Errorf("frame kind 0x%02x: %w", kind, errors.ErrUnknownFrame)
	}
}

func decodeNames(payload []byte) ([]string, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("roster payload too short: %w", errors.ErrUnknownFrame)
	}
	count := int(binary.BigEndian.Uint16(payload))
	payload = payload[2:]

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(payload) < 2 {
			return nil, fmt.Errorf("roster entry %d truncated: %w", i, errors.ErrUnknownFrame)
		}
		n := int(binary.BigEndian.Uint16(payload))
		payload = payload[2:]
		if len(payload) < n {
			return nil, fmt.Errorf("roster entry %d truncated: %w", i, errors.ErrUnknownFrame)
		}
		names = append(names, string(payload[:n]))
		payload = payload[n:]
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("roster has %d trailing bytes: %w", len(payload), errors.ErrUnknownFrame)
	}
	return names, nil
}

// Writer encodes frames onto a stream. It performs no locking: callers
// serialize access, one in-flight write per connection.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteText(text string) error {
	return w.writeFrame(KindText, []byte(text))
}

func (w *Writer) WriteRoster(names []string) error {
	payload, err := encodeNames(names)
	if err != nil {
		return err
	}
	return w.writeFrame(KindRoster, payload)
}

// WriteItem maps an outbound item to its frame representation.
func (w *Writer) WriteItem(item domain.Item) error {
	switch it := item.(type) {
	case domain.ChatLine:
		return w.WriteText(it.Text)
	case domain.SystemNotice:
		return w.WriteText(it.Text)
	case domain.RosterSnapshot:
		return w.WriteRoster(it.Names)
	default:
		return fmt.Errorf("item kind %s: %w", item.Kind(), errors.ErrUnknownFrame)
	}
}

func (w *Writer) writeFrame(kind byte, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("payload of %d bytes: %w", len(payload), errors.ErrFrameTooLarge)
	}
	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(1+len(payload)))
	buf[4] = kind
	copy(buf[5:], payload)
	_, err := w.w.Write(buf)
	return err
}

func encodeNames(names []string) ([]byte, error) {
	if len(names) > 0xFFFF {
		return nil, fmt.Errorf("roster of %d names: %w", len(names), errors.ErrFrameTooLarge)
	}
	size := 2
	for _, name := range names {
		if len(name) > 0xFFFF {
			return nil, fmt.Errorf("name of %d bytes: %w", len(name), errors.ErrFrameTooLarge)
		}
		size += 2 + len(name)
	}

	payload := make([]byte, 0, size)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(names)))
	for _, name := range names {
		payload = binary.BigEndian.AppendUint16(payload, uint16(len(name)))
		payload = append(payload, name...)
	}
	return payload, nil
}
