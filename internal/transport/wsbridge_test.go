package transport

import (
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSVecSinkSendsHeaderThenVectorThenMarkers(t *testing.T) {
	done := make(chan struct{})
	var frames [][]byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sink, err := UpgradeWSVecSink(w, r, 3, 10, false)
		require.NoError(t, err)
		require.NoError(t, sink.SendVector([]float32{1, 2, 3}))
		require.NoError(t, sink.EndSegment())
		require.NoError(t, sink.EndSession())
		close(done)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 4; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		frames = append(frames, msg)
	}
	<-done

	require.Len(t, frames, 4)
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(frames[0][0:4]), "header veclen")
	assert.Equal(t, uint32(10), binary.BigEndian.Uint32(frames[0][4:8]), "header frame shift")
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(frames[1][0:4]), "vector length prefix")
	assert.Equal(t, []byte{0, 0, 0, 0}, frames[2], "segment end marker")
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, frames[3], "session end marker")
}
