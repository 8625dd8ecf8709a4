package geocoding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// NominatimProvider OpenStreetMap Nominatim 地理编码适配器
// Nominatim requires an identifying User-Agent and allows one request per
// second; rate-limit responses come back as 429 and are treated as transient.
type NominatimProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

const nominatimDefaultURL = "https://nominatim.openstreetmap.org"

func NewNominatimProvider(baseURL, userAgent string, logger *zap.Logger) *NominatimProvider {
	if baseURL == "" {
		baseURL = nominatimDefaultURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &NominatimProvider{httpClient: client, logger: logger}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

// nominatimPlace is one entry of the /search response (also the /reverse
// response body). Coordinates come back as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *NominatimProvider) Geocode(ctx context.Context, address string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var places []nominatimPlace
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "jsonv2",
			"q":      address,
			"limit":  "1",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("nominatim search returned status %d", resp.StatusCode())
	}
	if len(places) == 0 {
		return nil, nil
	}
	return p.toResult(places[0], resp.Body())
}

func (p *NominatimProvider) Reverse(ctx context.Context, lat, lng float64, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var place nominatimPlace
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "jsonv2",
			"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":    strconv.FormatFloat(lng, 'f', -1, 64),
		}).
		SetResult(&place).
		Get("/reverse")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("nominatim reverse returned status %d", resp.StatusCode())
	}
	if place.DisplayName == "" {
		return nil, nil
	}
	return p.toResult(place, resp.Body())
}

func (p *NominatimProvider) toResult(place nominatimPlace, raw []byte) (*Result, error) {
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim returned malformed latitude %q: %w", place.Lat, err)
	}
	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim returned malformed longitude %q: %w", place.Lon, err)
	}
	return &Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: place.DisplayName,
		Provider:         p.Name(),
		Raw:              append([]byte(nil), raw...),
	}, nil
}
