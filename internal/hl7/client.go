package hl7

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// MLLPClient sends framed HL7 to a remote listener and waits for the ACK.
type MLLPClient struct {
	host    string
	port    int
	timeout time.Duration
}

func NewMLLPClient(host string, port int) *MLLPClient {
	return &MLLPClient{
		host:    host,
		port:    port,
		timeout: 30 * time.Second,
	}
}

func (c *MLLPClient) SendMessage(message []byte) error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	// Connect to server
	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	defer conn.Close()

	slog.Debug("Connected to HL7 server", "address", addr)

	// Wrap message with MLLP if not already wrapped
	wrappedMessage := WrapMLLP(message)

	// Set write deadline
	conn.SetWriteDeadline(time.Now().Add(c.timeout))

	// Send message
	_, err = conn.Write(wrappedMessage)
	if err != nil {
		return fmt.Errorf("could not send message: %w", err)
	}

	slog.Debug("HL7 message sent", "size", len(wrappedMessage))

	// Set read deadline for ACK
	conn.SetReadDeadline(time.Now().Add(c.timeout))

	// Read ACK
	ack, err := c.readMLLPMessage(bufio.NewReader(conn))
	if err != nil {
		return fmt.Errorf("could not read ACK: %w", err)
	}

	// Check ACK code
	ackCode := c.extractACKCode(ack)
	if ackCode != "AA" && ackCode != "CA" {
		return fmt.Errorf("negative ACK received: %s", ackCode)
	}

	slog.Info("HL7 message delivered", "address", addr, "ackCode", ackCode)

	return nil
}

func (c *MLLPClient) readMLLPMessage(reader *bufio.Reader) ([]byte, error) {
	// Wait for start block
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartBlock {
			break
		}
	}

	// Read until end block
	var buffer bytes.Buffer
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}

		if b == EndBlock {
			// Read carriage return
			cr, err := reader.ReadByte()
			if err != nil {
				return nil, err
			}
			if cr != CarriageReturn {
				return nil, fmt.Errorf("bad MLLP frame: expected CR, got %02X", cr)
			}
			break
		}

		buffer.WriteByte(b)
	}

	return buffer.Bytes(), nil
}

func (c *MLLPClient) extractACKCode(ack []byte) string {
	// Simple MSA segment scan for the ACK code
	lines := bytes.Split(ack, []byte(SegmentTerminator))
	for _, line := range lines {
		if bytes.HasPrefix(line, []byte("MSA")) {
			fields := bytes.Split(line, []byte(FieldSeparator))
			if len(fields) > 1 {
				return string(fields[1])
			}
		}
	}
	return ""
}
