package httpsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/services/pcap"
	"github.com/google/netsim/internal/core/services/scene"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store := scene.New()
	pm, err := pcap.New(t.TempDir())
	require.NoError(t, err)
	s := &Server{Scene: store, Pcap: pm}
	s.ws = newWSHub(func() domain.Scene { return store.ListDevices(context.Background()) })
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestCreateThenListDevices(t *testing.T) {
	_, ts := newTestServer(t)

	body, _ := json.Marshal(domain.DeviceCreate{Name: "pixel-1", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	resp, err := http.Post(ts.URL+"/v1/devices", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/devices")
	require.NoError(t, err)
	defer resp.Body.Close()
	var scn domain.Scene
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scn))
	require.Len(t, scn.Devices, 1)
	assert.Equal(t, "pixel-1", scn.Devices[0].Name)
}

func TestCreateDeviceRejectsBadJSON(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/devices", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
}

func TestDeleteChipNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/chips/999", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVersionEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReportCSVEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/report.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}

func TestWebSocketBroadcastsListDeviceSnapshotOnChange(t *testing.T) {
	s, ts := newTestServer(t)
	unregister := s.Scene.(*scene.Store).OnChange(func() { s.ws.broadcastChanged() })
	defer unregister()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/register-updates"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = s.Scene.CreateDevice(context.Background(), domain.DeviceCreate{
		Name: "pixel-1", Chips: []domain.ChipCreate{{Kind: domain.ChipKindBleBeacon}},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var scn domain.Scene
	require.NoError(t, json.Unmarshal(msg, &scn))
	require.Len(t, scn.Devices, 1)
	require.Len(t, scn.Devices[0].Chips, 1)
	assert.Equal(t, domain.ChipKindBleBeacon, scn.Devices[0].Chips[0].Kind)
}

func TestAuditEndpointWithoutAuditLogReturnsEmptyList(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/audit")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Empty(t, entries)
}
