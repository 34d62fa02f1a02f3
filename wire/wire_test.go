package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func TestWire_Text_RoundTrip(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	// Given a text frame written to the stream
	req.NoError(NewWriter(&buf).WriteText("alice: hello"))

	// Then it decodes to the same text
	frame, err := NewReader(&buf).ReadFrame()
	req.NoError(err)
	req.Equal(KindText, frame.Kind)
	req.Equal("alice: hello", frame.Text)
}

func TestWire_Roster_RoundTrip(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	names := []string{"alice", "bob", "sam", "sam", ""}
	req.NoError(NewWriter(&buf).WriteRoster(names))

	frame, err := NewReader(&buf).ReadFrame()
	req.NoError(err)
	req.Equal(KindRoster, frame.Kind)
	req.Equal(names, frame.Names)
}

func TestWire_Preserves_Message_Boundaries(t *testing.T) {
	req := require.New(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		w := NewWriter(client)
		_ = w.WriteText("first")
		_ = w.WriteText("second")
		_ = w.WriteRoster([]string{"alice"})
	}()

	r := NewReader(server)
	_ = server.SetReadDeadline(time.Now().Add(time.Second))

	frame, err := r.ReadFrame()
	req.NoError(err)
	req.Equal("first", frame.Text)

	frame, err = r.ReadFrame()
	req.NoError(err)
	req.Equal("second", frame.Text)

	frame, err = r.ReadFrame()
	req.NoError(err)
	req.Equal([]string{"alice"}, frame.Names)
}

func TestWire_WriteItem_Maps_Every_Kind(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)

	req.NoError(w.WriteItem(domain.ChatLine{Text: "alice: hi"}))
	req.NoError(w.WriteItem(domain.SystemNotice{Text: "bob connected"}))
	req.NoError(w.WriteItem(domain.RosterSnapshot{Names: []string{"alice", "bob"}}))

	r := NewReader(&buf)
	for _, want := range []Frame{
		{Kind: KindText, Text: "alice: hi"},
		{Kind: KindText, Text: "bob connected"},
		{Kind: KindRoster, Names: []string{"alice", "bob"}},
	} {
		frame, err := r.ReadFrame()
		req.NoError(err)
		req.Equal(want, frame)
	}
}

func TestWire_Unknown_Kind_Keeps_Stream_Aligned(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	// Given a frame with an unknown kind followed by a valid one
	body := []byte{0x7F, 'x', 'y'}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)
	req.NoError(NewWriter(&buf).WriteText("still here"))

	r := NewReader(&buf)

	// Then the unknown frame is reported but fully consumed
	_, err := r.ReadFrame()
	req.ErrorIs(err, errors.ErrUnknownFrame)

	// And the next frame decodes normally
	frame, err := r.ReadFrame()
	req.NoError(err)
	req.Equal("still here", frame.Text)
}

func TestWire_Roster_With_Trailing_Bytes_Is_Rejected(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	// Given a roster frame padded with a stray byte past the declared names
	req.NoError(NewWriter(&buf).WriteRoster([]string{"alice"}))
	raw := append(buf.Bytes(), 0x00)
	binary.BigEndian.PutUint32(raw, binary.BigEndian.Uint32(raw)+1)

	stream := bytes.NewBuffer(raw)
	req.NoError(NewWriter(stream).WriteText("still here"))
	r := NewReader(stream)

	// Then the corrupt roster is reported but fully consumed
	_, err := r.ReadFrame()
	req.ErrorIs(err, errors.ErrUnknownFrame)

	// And the next frame decodes normally
	frame, err := r.ReadFrame()
	req.NoError(err)
	req.Equal("still here", frame.Text)
}

func TestWire_Oversize_Frame_Is_Unrecoverable(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxPayload+2)
	buf.Write(header[:])

	_, err := NewReader(&buf).ReadFrame()
	req.ErrorIs(err, errors.ErrFrameTooLarge)
}

func TestWire_Truncated_Stream_Returns_IO_Error(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 10)
	buf.Write(header[:])
	buf.Write([]byte{KindText, 'h', 'i'}) // 7 bytes short

	_, err := NewReader(&buf).ReadFrame()
	req.ErrorIs(err, io.ErrUnexpectedEOF)
}

func TestWire_Rejects_Oversize_Payload_On_Write(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	err := NewWriter(&buf).WriteText(string(make([]byte, MaxPayload+1)))
	req.ErrorIs(err, errors.ErrFrameTooLarge)
	req.Zero(buf.Len())
}
