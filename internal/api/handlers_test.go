package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/binmap/backend/internal/archive"
	"github.com/binmap/backend/internal/mapview"
	"github.com/binmap/backend/internal/markers"
	"github.com/binmap/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// stubView is a MapView over a real map without any polling
type stubView struct {
	m        *mapview.Map
	rec      *markers.Reconciler
	bins     []models.BinStat
	trucks   []models.TruckStat
	at       time.Time
	geocoder bool
}

func newStubView() *stubView {
	m := mapview.NewMap(models.MapOptions{
		Container: "map",
		Center:    models.LngLat{Lng: 100.61, Lat: 13.68},
		Zoom:      14,
		Style:     "mapbox://styles/mapbox/streets-v11",
	})
	return &stubView{
		m:        m,
		rec:      markers.NewReconciler(m, markers.Options{}),
		at:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		geocoder: true,
	}
}

func (s *stubView) load(bins []models.BinStat, trucks []models.TruckStat) {
	s.bins, s.trucks = bins, trucks
	s.rec.ReconcileBins(bins)
	s.rec.RedrawTrucks(trucks)
}

func (s *stubView) Map() (*mapview.Map, bool) { return s.m, s.m != nil }

func (s *stubView) Options() (models.MapOptions, bool) {
	if s.m == nil {
		return models.MapOptions{}, s.geocoder
	}
	return s.m.Options(), s.geocoder
}

func (s *stubView) Bins() ([]models.BinStat, time.Time, bool) { return s.bins, s.at, s.m != nil }

func (s *stubView) Trucks() ([]models.TruckStat, time.Time, bool) {
	return s.trucks, s.at, s.m != nil
}

func (s *stubView) Stats() (markers.Stats, bool) {
	if s.m == nil {
		return markers.Stats{}, false
	}
	return s.rec.Stats(), true
}

type stubHistory struct {
	records []archive.Record
	err     error
	gotID   int
	gotLim  int
}

func (s *stubHistory) History(_ context.Context, binID, limit int) ([]archive.Record, error) {
	s.gotID, s.gotLim = binID, limit
	return s.records, s.err
}

func sampleBins() []models.BinStat {
	return []models.BinStat{
		{ID: 1, Name: "A", Latitude: 13.7, Longitude: 100.5, Empty: true},
		{ID: 2, Name: "B", Latitude: 13.8, Longitude: 100.6, Empty: true, Status: true},
	}
}

func sampleTrucks() []models.TruckStat {
	return []models.TruckStat{{ID: 1, Name: "T1", Latitude: 13.69, Longitude: 100.61}}
}

func newContext(method, target string, body []byte) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %T", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func TestHealthHandler(t *testing.T) {
	view := newStubView()
	view.load(sampleBins(), sampleTrucks())
	h := NewHealthHandler("1.2.3", view)

	c, rec := newContext(http.MethodGet, "/api/health", nil)
	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
		assert.Contains(t, rec.Body.String(), `"registered":2`)
		assert.Contains(t, rec.Body.String(), `"truckMarkers":1`)
	}
}

func TestMapHandler_HandleGetMap(t *testing.T) {
	view := newStubView()
	require.NoError(t, view.m.AddControl(mapview.GeocoderControl))
	h := NewMapHandler(view)

	c, rec := newContext(http.MethodGet, "/api/map", nil)
	require.NoError(t, h.HandleGetMap(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp mapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Mounted)
	assert.True(t, resp.Geocoder)
	assert.Equal(t, 14.0, resp.Options.Zoom)
	assert.Equal(t, "map", resp.Options.Container)
	assert.Equal(t, []models.Control{mapview.GeocoderControl}, resp.Controls)
}

func TestMapHandler_HandleFlyTo(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		errCode string
	}{
		{name: "valid", body: `{"center":[100.5,13.7],"zoom":16}`},
		{name: "missing zoom", body: `{"center":[100.5,13.7]}`, wantErr: true, errCode: "VALIDATION_ERROR"},
		{name: "bad center", body: `{"center":[100.5],"zoom":3}`, wantErr: true, errCode: "VALIDATION_ERROR"},
		{name: "out of range", body: `{"center":[200,13.7],"zoom":3}`, wantErr: true, errCode: "VALIDATION_ERROR"},
		{name: "invalid json", body: `{"center":`, wantErr: true, errCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := newStubView()
			h := NewMapHandler(view)

			c, rec := newContext(http.MethodPost, "/api/map/flyto", []byte(tt.body))
			err := h.HandleFlyTo(c)

			if tt.wantErr {
				assertAPIError(t, err, http.StatusBadRequest, tt.errCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, mapview.Camera{Center: models.LngLat{Lng: 100.5, Lat: 13.7}, Zoom: 16}, view.m.Camera())
		})
	}
}

func TestMapHandler_FlyToUnmounted(t *testing.T) {
	h := NewMapHandler(&stubView{})

	c, _ := newContext(http.MethodPost, "/api/map/flyto", []byte(`{"center":[100.5,13.7],"zoom":16}`))
	assertAPIError(t, h.HandleFlyTo(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestMarkerHandler_HandleGetMarkers(t *testing.T) {
	view := newStubView()
	view.load(sampleBins(), sampleTrucks())
	h := NewMarkerHandler(view)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?kind=bin", 2},
		{"?kind=truck", 1},
	}
	for _, tt := range tests {
		t.Run("kind"+tt.query, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/api/markers"+tt.query, nil)
			require.NoError(t, h.HandleGetMarkers(c))

			var resp markersResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Total)
			assert.Len(t, resp.Markers, tt.want)
		})
	}

	c, _ := newContext(http.MethodGet, "/api/markers?kind=boat", nil)
	assertAPIError(t, h.HandleGetMarkers(c), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestMarkerHandler_Unmounted(t *testing.T) {
	h := NewMarkerHandler(&stubView{})

	c, rec := newContext(http.MethodGet, "/api/markers", nil)
	require.NoError(t, h.HandleGetMarkers(c))
	assert.Contains(t, rec.Body.String(), `"markers":[]`)
}

func TestMarkerHandler_HandleGetMarkersMsgpack(t *testing.T) {
	view := newStubView()
	view.load(sampleBins(), nil)
	h := NewMarkerHandler(view)

	c, rec := newContext(http.MethodGet, "/api/markers/msgpack?kind=bin", nil)
	require.NoError(t, h.HandleGetMarkersMsgpack(c))
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var resp markersResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, models.KindBin, resp.Markers[0].Kind)
	assert.Equal(t, models.LabelUncollectedFull, resp.Markers[0].Popup.Label)
	assert.Equal(t, models.LabelCollectedNotFull, resp.Markers[1].Popup.Label)
}

func TestFeedHandler_Snapshots(t *testing.T) {
	view := newStubView()
	view.load(sampleBins(), nil)
	h := NewFeedHandler(view, nil)

	c, rec := newContext(http.MethodGet, "/api/bins", nil)
	require.NoError(t, h.HandleGetBins(c))
	var bins models.Envelope[models.BinStat]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bins))
	assert.Len(t, bins.Data, 2)
	assert.Contains(t, rec.Body.String(), `"fetchedAt":"2024-05-01T10:00:00Z"`)

	c, rec = newContext(http.MethodGet, "/api/trucks", nil)
	require.NoError(t, h.HandleGetTrucks(c))
	assert.Contains(t, rec.Body.String(), `"data":[]`)

	c, _ = newContext(http.MethodGet, "/api/bins", nil)
	assertAPIError(t, NewFeedHandler(&stubView{}, nil).HandleGetBins(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestFeedHandler_HandleGetBinHistory(t *testing.T) {
	view := newStubView()

	t.Run("archive disabled", func(t *testing.T) {
		h := NewFeedHandler(view, nil)
		c, _ := newContext(http.MethodGet, "/api/bins/1/history", nil)
		c.SetParamNames("id")
		c.SetParamValues("1")
		assertAPIError(t, h.HandleGetBinHistory(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
	})

	t.Run("invalid id", func(t *testing.T) {
		h := NewFeedHandler(view, &stubHistory{})
		c, _ := newContext(http.MethodGet, "/api/bins/abc/history", nil)
		c.SetParamNames("id")
		c.SetParamValues("abc")
		assertAPIError(t, h.HandleGetBinHistory(c), http.StatusBadRequest, "BAD_REQUEST")
	})

	t.Run("invalid limit", func(t *testing.T) {
		h := NewFeedHandler(view, &stubHistory{})
		c, _ := newContext(http.MethodGet, "/api/bins/1/history?limit=-4", nil)
		c.SetParamNames("id")
		c.SetParamValues("1")
		assertAPIError(t, h.HandleGetBinHistory(c), http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("store error", func(t *testing.T) {
		h := NewFeedHandler(view, &stubHistory{err: errors.New("disk gone")})
		c, _ := newContext(http.MethodGet, "/api/bins/1/history", nil)
		c.SetParamNames("id")
		c.SetParamValues("1")
		assertAPIError(t, h.HandleGetBinHistory(c), http.StatusInternalServerError, "INTERNAL_ERROR")
	})

	t.Run("records", func(t *testing.T) {
		store := &stubHistory{records: []archive.Record{{BinID: 7, Label: models.LabelFull}}}
		h := NewFeedHandler(view, store)
		c, rec := newContext(http.MethodGet, "/api/bins/7/history?limit=5", nil)
		c.SetParamNames("id")
		c.SetParamValues("7")

		require.NoError(t, h.HandleGetBinHistory(c))
		assert.Equal(t, 7, store.gotID)
		assert.Equal(t, 5, store.gotLim)
		assert.True(t, strings.Contains(rec.Body.String(), `"label":"full"`))
	})
}

func TestErrorHandler(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/anything", nil)
	ErrorHandler(NewValidationError("zoom"), c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)

	c, rec = newContext(http.MethodGet, "/api/anything", nil)
	ErrorHandler(errors.New("secret"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
