package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZippopotamGeocoder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/us/10001":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"post code":"10001","places":[{"place name":"New York City","latitude":"40.7484","longitude":"-73.9967"}]}`))
		case "/us/50000":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	g := NewZippopotamGeocoder(srv.URL + "/")
	ctx := context.Background()

	coords, err := g.ZipToCoords(ctx, " 10001 ")
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.InDelta(t, 40.7484, coords.Lat, 1e-9)
	assert.InDelta(t, -73.9967, coords.Lng, 1e-9)

	_, err = g.ZipToCoords(ctx, "10001")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	coords, err = g.ZipToCoords(ctx, "99999")
	require.NoError(t, err)
	assert.Nil(t, coords)

	_, err = g.ZipToCoords(ctx, "50000")
	assert.Error(t, err)

	coords, err = g.ZipToCoords(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, coords)
}
