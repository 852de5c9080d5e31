package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a postal code to coordinates. A nil result with a nil
// error means the code is unknown.
type Geocoder interface {
	ZipToCoords(ctx context.Context, zip string) (*Coordinates, error)
}

type zippopotamResponse struct {
	Places []struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// ZippopotamGeocoder looks up US ZIP codes on api.zippopotam.us and keeps the
// answers in memory; ZIP centroids do not move.
type ZippopotamGeocoder struct {
	baseURL string
	country string
	client  *http.Client

	mu    sync.RWMutex
	cache map[string]*Coordinates
}

func NewZippopotamGeocoder(baseURL string) *ZippopotamGeocoder {
	return &ZippopotamGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		country: "us",
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   make(map[string]*Coordinates),
	}
}

func (g *ZippopotamGeocoder) ZipToCoords(ctx context.Context, zip string) (*Coordinates, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return nil, nil
	}

	g.mu.RLock()
	cached, ok := g.cache[zip]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/%s/%s", g.baseURL, g.country, zip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %s: %w", zip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %s: unexpected status %d", zip, resp.StatusCode)
	}

	var data zippopotamResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(data.Places) == 0 {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(data.Places[0].Latitude, 64)
	lng, errLng := strconv.ParseFloat(data.Places[0].Longitude, 64)
	if errLat != nil || errLng != nil {
		return nil, nil
	}

	coords := &Coordinates{Lat: lat, Lng: lng}
	g.mu.Lock()
	g.cache[zip] = coords
	g.mu.Unlock()
	return coords, nil
}
