package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightwatch/internal/avinor"
	"github.com/yegors/flightwatch/internal/display"
	"github.com/yegors/flightwatch/internal/tracker"
	"github.com/yegors/flightwatch/internal/websocket"
	"github.com/yegors/flightwatch/pkg/logger"
)

type staticSource struct {
	feed *avinor.Feed
}

func (s staticSource) FetchFlights(ctx context.Context, airport string) (*avinor.Feed, error) {
	return s.feed, nil
}

func newTestService(publishers ...tracker.Publisher) *tracker.Service {
	feed := &avinor.Feed{
		Airport:    "OSL",
		LastUpdate: "2024-01-01T09:00:00Z",
		Flights: []avinor.Flight{{
			FlightID:     "SK4167",
			ArrDep:       avinor.DirectionArrival,
			Airport:      "LHR",
			ScheduleTime: "2024-01-01T10:00:00Z",
			Status:       avinor.StatusUpdate{Code: avinor.StatusCodeEstimated, Time: "2024-01-01T10:20:00Z"},
		}},
	}

	return tracker.NewService(tracker.Config{
		HomeAirport:    "OSL",
		UpdateInterval: time.Hour,
		Location:       time.UTC,
		Flights:        []tracker.WatchlistEntry{{FlightNumber: "SK4167", Label: "Trip"}},
	}, staticSource{feed: feed}, logger.NewNop(), publishers...)
}

func serve(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFlightsBeforeFirstCycle(t *testing.T) {
	routes := NewRouter(newTestService(), nil, time.UTC, logger.NewNop()).Routes()

	assert.Equal(t, http.StatusNoContent, serve(t, routes, http.MethodGet, "/api/v1/flights").Code)
	assert.Equal(t, http.StatusNoContent, serve(t, routes, http.MethodGet, "/api/v1/view").Code)

	rec := serve(t, routes, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "waiting", health["status"])
}

func TestFlightsAfterCycle(t *testing.T) {
	svc := newTestService()
	svc.FetchCycle(context.Background())
	routes := NewRouter(svc, nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodGet, "/api/v1/flights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snapshot tracker.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "OSL", snapshot.Airport)
	require.Len(t, snapshot.Flights, 1)
	assert.Equal(t, "Trip", snapshot.Flights[0].Label)
	assert.Equal(t, tracker.StatusEstimated, snapshot.Flights[0].Status.Category)

	rec = serve(t, routes, http.MethodGet, "/api/v1/health")
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["tracked_flights"])
}

func TestView(t *testing.T) {
	svc := newTestService()
	svc.FetchCycle(context.Background())
	routes := NewRouter(svc, nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodGet, "/api/v1/view")
	require.Equal(t, http.StatusOK, rec.Code)

	var view display.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, display.Header, view.Header)
	require.Len(t, view.Items, 1)
	assert.Equal(t, display.IconClock, view.Items[0].Icon)
	assert.Equal(t, "LHR → OSL", view.Items[0].Route)
	assert.Equal(t, "~~10:00~~ 10:20", view.Items[0].Time.Text())
}

func TestStatus(t *testing.T) {
	svc := newTestService()
	svc.FetchCycle(context.Background())
	wsServer := websocket.NewServer(logger.NewNop())
	routes := NewRouter(svc, wsServer, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tracker          tracker.Stats `json:"tracker"`
		WebsocketClients int           `json:"websocket_clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Tracker.Cycles)
	assert.Equal(t, "OSL", body.Tracker.Airport)
	assert.Equal(t, 0, body.WebsocketClients)
}

func TestRefresh(t *testing.T) {
	svc := newTestService()
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()
	routes := NewRouter(svc, nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		_, ok := svc.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, routes, http.MethodGet, "/api/v1/refresh").Code)
}

func TestRefreshWhileStopped(t *testing.T) {
	svc := newTestService()
	routes := NewRouter(svc, nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.EqualValues(t, 0, svc.Stats().Cycles)
}

func TestStatusBeforeFirstCycleOmitsTimes(t *testing.T) {
	routes := NewRouter(newTestService(), nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "last_success")
	assert.NotContains(t, rec.Body.String(), "0001-01-01")
}

func TestCORSPreflight(t *testing.T) {
	routes := NewRouter(newTestService(), nil, time.UTC, logger.NewNop()).Routes()

	rec := serve(t, routes, http.MethodOptions, "/api/v1/flights")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketDisabled(t *testing.T) {
	routes := NewRouter(newTestService(), nil, time.UTC, logger.NewNop()).Routes()
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, routes, http.MethodGet, "/api/v1/ws").Code)
}

func TestWebSocketReceivesLatestSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsServer := websocket.NewServer(logger.NewNop())
	go wsServer.Run(ctx)

	svc := newTestService(tracker.NewWebSocketPublisher(wsServer))
	svc.FetchCycle(ctx)

	srv := httptest.NewServer(NewRouter(svc, wsServer, time.UTC, logger.NewNop()).Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Airport string                  `json:"airport"`
			Flights []tracker.TrackedFlight `json:"flights"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.MessageTypeFlightData, msg.Type)
	assert.Equal(t, "OSL", msg.Data.Airport)
	require.Len(t, msg.Data.Flights, 1)
	assert.Equal(t, "SK4167", msg.Data.Flights[0].FlightID)
}
