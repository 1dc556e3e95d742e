package hl7

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/purelab/lis-gateway/internal/store"
)

// MLLPServer accepts framed HL7 over TCP and records every parseable
// message in the store, answering AA on success and AE on parse failure.
type MLLPServer struct {
	port     int
	store    *store.MessageStore
	listener net.Listener
}

func NewMLLPServer(port int, st *store.MessageStore) *MLLPServer {
	return &MLLPServer{
		port:  port,
		store: st,
	}
}

func (s *MLLPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}
	s.listener = listener

	slog.Info("HL7 MLLP server started", "port", s.port, "address", addr)

	go s.acceptConnections(ctx)
	return nil
}

// Addr returns the bound listen address, valid after Start.
func (s *MLLPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *MLLPServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("Connection accept failed", "error", err)
				continue
			}

			go s.handleConnection(ctx, conn)
		}
	}
}

func (s *MLLPServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	slog.Info("New HL7 connection", "remoteAddr", remoteAddr)

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			// Set read timeout
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))

			// Read MLLP message
			message, err := s.readMLLPMessage(reader)
			if err != nil {
				if err == io.EOF {
					slog.Info("Connection closed", "remoteAddr", remoteAddr)
					return
				}
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				slog.Error("Message read failed", "error", err, "remoteAddr", remoteAddr)
				return
			}

			// Process message
			msg, err := s.processMessage(message, remoteAddr)
			if err != nil {
				slog.Error("Message processing failed", "error", err, "remoteAddr", remoteAddr)
				// Send NACK
				conn.Write(BuildAck(msg, "AE"))
			} else {
				// Send ACK
				conn.Write(BuildAck(msg, "AA"))
			}
		}
	}
}

func (s *MLLPServer) readMLLPMessage(reader *bufio.Reader) ([]byte, error) {
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

func (s *MLLPServer) processMessage(rawMessage []byte, sourceAddr string) (*Message, error) {
	raw := string(UnwrapMLLP(rawMessage))

	msg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("message parse failed: %w", err)
	}

	messageType, ok := msg.MessageType()
	if !ok {
		messageType = "Unknown"
	}

	rec := store.NewMessageRecord(messageType, raw, len(msg.Segments))
	s.store.Append(rec)

	slog.Info("HL7 message received and stored",
		"id", rec.ID,
		"messageType", messageType,
		"segments", rec.SegmentCount,
		"source", sourceAddr)

	return msg, nil
}

func (s *MLLPServer) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
