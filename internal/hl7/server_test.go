package hl7

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelab/lis-gateway/internal/store"
)

func startTestMLLPServer(t *testing.T) (*store.MessageStore, *MLLPClient) {
	t.Helper()

	st := store.NewMessageStore()
	srv := NewMLLPServer(0, st)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	port := srv.Addr().(*net.TCPAddr).Port
	return st, NewMLLPClient("127.0.0.1", port)
}

func TestMLLPServerStoresMessage(t *testing.T) {
	st, client := startTestMLLPServer(t)

	require.NoError(t, client.SendMessage([]byte(sampleADT)))

	records := st.List()
	require.Len(t, records, 1)
	assert.Equal(t, "ADT^A01", records[0].MessageType)
	assert.Equal(t, 2, records[0].SegmentCount)
	assert.Equal(t, sampleADT, records[0].RawMessage)
}

func TestMLLPServerStoresMessageWithoutMSH(t *testing.T) {
	st, client := startTestMLLPServer(t)

	require.NoError(t, client.SendMessage([]byte("INVALID|MESSAGE")))

	records := st.List()
	require.Len(t, records, 1)
	assert.Equal(t, "Unknown", records[0].MessageType)
	assert.Equal(t, 1, records[0].SegmentCount)
}

func TestMLLPServerRejectsUnparseable(t *testing.T) {
	st, client := startTestMLLPServer(t)

	err := client.SendMessage([]byte("\r\r"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AE")

	assert.Empty(t, st.List())
}

func TestMLLPServerHandlesSequentialMessages(t *testing.T) {
	st, client := startTestMLLPServer(t)

	require.NoError(t, client.SendMessage([]byte(sampleADT)))
	require.NoError(t, client.SendMessage([]byte("MSH|^~\\&|A|B|C|D|20250101120000||ORM^O01|MSG2|P|2.5\r")))

	records := st.List()
	require.Len(t, records, 2)
	assert.Equal(t, "ADT^A01", records[0].MessageType)
	assert.Equal(t, "ORM^O01", records[1].MessageType)
}
