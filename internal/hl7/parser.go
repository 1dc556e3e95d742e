package hl7

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MLLP frame characters
	StartBlock     = 0x0B
	EndBlock       = 0x1C
	CarriageReturn = 0x0D
)

const (
	SegmentTerminator  = "\r"
	FieldSeparator     = "|"
	ComponentSeparator = "^"
	TimestampLayout    = "20060102150405"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrNoSegments   = errors.New("message contains no segments")
)

// Segment is one named line of an HL7 message. Fields holds everything
// after the segment name, so for MSH the encoding characters sit at
// Fields[0] and HL7 numbering counts the field separator itself as MSH-1.
type Segment struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// Field returns the HL7-numbered field of the segment, or "" when the
// segment is too short. For MSH, field 1 is the field separator.
func (s Segment) Field(n int) string {
	if s.Name == "MSH" {
		if n == 1 {
			return FieldSeparator
		}
		n--
	}
	if n < 1 || n > len(s.Fields) {
		return ""
	}
	return s.Fields[n-1]
}

type Message struct {
	Segments []Segment `json:"segments"`
}

// Parse decodes raw HL7 text into ordered segments. It fails only on an
// empty input or an input that yields no segments at all; a message
// without an MSH header still parses.
func Parse(raw string) (*Message, error) {
	if raw == "" {
		return nil, ErrEmptyMessage
	}

	msg := &Message{}
	for _, line := range strings.Split(raw, SegmentTerminator) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, FieldSeparator)
		msg.Segments = append(msg.Segments, Segment{
			Name:   fields[0],
			Fields: fields[1:],
		})
	}

	if len(msg.Segments) == 0 {
		return nil, ErrNoSegments
	}
	return msg, nil
}

// Segment returns the first segment with the given name.
func (m *Message) Segment(name string) (Segment, bool) {
	for _, seg := range m.Segments {
		if seg.Name == name {
			return seg, true
		}
	}
	return Segment{}, false
}

// MessageType returns MSH-9 (e.g. "ADT^A01"). The second return is false
// when the message has no MSH segment or the field is empty.
func (m *Message) MessageType() (string, bool) {
	msh, ok := m.Segment("MSH")
	if !ok {
		return "", false
	}
	messageType := msh.Field(9)
	return messageType, messageType != ""
}

// SegmentNames returns the segment names in message order.
func (m *Message) SegmentNames() []string {
	names := make([]string, len(m.Segments))
	for i, seg := range m.Segments {
		names[i] = seg.Name
	}
	return names
}

// AddSegment appends a segment, used when building outbound messages.
func (m *Message) AddSegment(name string, fields ...string) {
	m.Segments = append(m.Segments, Segment{Name: name, Fields: fields})
}

// Encode renders the message back to wire text, one terminated line per
// segment.
func (m *Message) Encode() string {
	var sb strings.Builder
	for _, seg := range m.Segments {
		sb.WriteString(seg.Name)
		for _, field := range seg.Fields {
			sb.WriteString(FieldSeparator)
			sb.WriteString(field)
		}
		sb.WriteString(SegmentTerminator)
	}
	return sb.String()
}

// BuildAck creates an HL7 ACK for the original message. A nil original
// still produces a well-formed ACK with a generated control ID.
func BuildAck(original *Message, ackCode string) []byte {
	var messageType, controlID, sendingApp, sendingFacility string
	if original != nil {
		if msh, ok := original.Segment("MSH"); ok {
			sendingApp = msh.Field(3)
			sendingFacility = msh.Field(4)
			messageType = msh.Field(9)
			controlID = msh.Field(10)
		}
	}

	timestamp := time.Now().Format(TimestampLayout)
	if controlID == "" {
		controlID = fmt.Sprintf("ACK%d", time.Now().Unix())
	}

	ack := fmt.Sprintf("MSH|^~\\&|LIS_GATEWAY|PURELAB|%s|%s|%s||ACK^%s|%s|P|2.5\rMSA|%s|%s",
		sendingApp,
		sendingFacility,
		timestamp,
		messageType,
		controlID,
		ackCode,
		controlID)

	// Add MLLP wrapper
	return append([]byte{StartBlock}, append([]byte(ack+"\r"), EndBlock, CarriageReturn)...)
}

// WrapMLLP adds MLLP wrapper to message
func WrapMLLP(message []byte) []byte {
	if len(message) == 0 {
		return message
	}

	// Check if already wrapped
	if message[0] == StartBlock {
		return message
	}

	return append([]byte{StartBlock}, append(message, EndBlock, CarriageReturn)...)
}

// UnwrapMLLP removes MLLP wrapper from message
func UnwrapMLLP(message []byte) []byte {
	message = bytes.TrimPrefix(message, []byte{StartBlock})
	message = bytes.TrimSuffix(message, []byte{EndBlock, CarriageReturn})
	return message
}
