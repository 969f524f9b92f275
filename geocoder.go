package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const mapboxBaseURL = "https://api.mapbox.com"

// GeocodeResult is the position found for an address.
type GeocodeResult struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Geocoder resolves a free-form address. A nil result without error means
// nothing was found.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}

func newGeocoder(cfg *Config) Geocoder {
	client := &http.Client{Timeout: geocoderTimeout}
	nominatim := &NominatimGeocoder{
		BaseURL:   cfg.NominatimBaseURL,
		UserAgent: nominatimUserAgent,
		Client:    client,
	}
	mapbox := &MapboxGeocoder{
		BaseURL:     mapboxBaseURL,
		AccessToken: cfg.MapboxAccessToken,
		Client:      client,
	}

	switch cfg.GeocoderProvider {
	case "nominatim":
		return nominatim
	case "mapbox":
		return mapbox
	case "fallback":
		return &FallbackGeocoder{Primary: mapbox, Secondary: nominatim}
	default:
		return nil
	}
}

// MapboxGeocoder implements Geocoder using Mapbox API v6
type MapboxGeocoder struct {
	BaseURL     string
	AccessToken string
	Client      *http.Client
}

func (g *MapboxGeocoder) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if g.AccessToken == "" {
		return nil, errors.New("mapbox access token missing")
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("access_token", g.AccessToken)
	params.Set("country", "de")
	params.Set("language", "de")
	params.Set("limit", "1")
	u := g.BaseURL + "/search/geocode/v6/forward?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mapbox error (%d): %s", resp.StatusCode, string(body))
	}

	var data struct {
		Features []struct {
			Properties struct {
				FullAddress string `json:"full_address"`
				Coordinates struct {
					Latitude  float64 `json:"latitude"`
					Longitude float64 `json:"longitude"`
				} `json:"coordinates"`
			} `json:"properties"`
		} `json:"features"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if len(data.Features) == 0 {
		return nil, nil
	}

	feat := data.Features[0]
	return &GeocodeResult{
		Lat:         feat.Properties.Coordinates.Latitude,
		Lng:         feat.Properties.Coordinates.Longitude,
		DisplayName: feat.Properties.FullAddress,
	}, nil
}

// NominatimGeocoder implements Geocoder using OSM Nominatim.
// Nominatim requires a User-Agent and allows at most one request per second.
type NominatimGeocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	mu        sync.Mutex
	lastCall  time.Time
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	u := g.BaseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim error: %d", resp.StatusCode)
	}

	var data []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(data[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim lat: %w", err)
	}
	lng, err := strconv.ParseFloat(data[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim lon: %w", err)
	}

	return &GeocodeResult{
		Lat:         lat,
		Lng:         lng,
		DisplayName: data[0].DisplayName,
	}, nil
}

// wait spaces calls at least one second apart.
func (g *NominatimGeocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if elapsed := time.Since(g.lastCall); elapsed < time.Second {
		timer := time.NewTimer(time.Second - elapsed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastCall = time.Now()
	return nil
}

// FallbackGeocoder prioritizes first, falls back to second
type FallbackGeocoder struct {
	Primary   Geocoder
	Secondary Geocoder
}

func (g *FallbackGeocoder) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	res, err := g.Primary.Geocode(ctx, address)
	if err != nil || res == nil {
		return g.Secondary.Geocode(ctx, address)
	}
	return res, nil
}
