package geocoding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PhotonProvider Komoot Photon 地理编码适配器
// Photon speaks GeoJSON: coordinates are [lng, lat] and the formatted
// address has to be assembled from the feature properties.
type PhotonProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

const photonDefaultURL = "https://photon.komoot.io"

func NewPhotonProvider(baseURL, userAgent string, logger *zap.Logger) *PhotonProvider {
	if baseURL == "" {
		baseURL = photonDefaultURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &PhotonProvider{httpClient: client, logger: logger}
}

func (p *PhotonProvider) Name() string { return "photon" }

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
		Properties struct {
			Name        string `json:"name"`
			HouseNumber string `json:"housenumber"`
			Street      string `json:"street"`
			City        string `json:"city"`
			State       string `json:"state"`
			PostCode    string `json:"postcode"`
			Country     string `json:"country"`
		} `json:"properties"`
	} `json:"features"`
}

func (p *PhotonProvider) Geocode(ctx context.Context, address string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body photonResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     address,
			"limit": "1",
		}).
		SetResult(&body).
		Get("/api/")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("photon geocode returned status %d", resp.StatusCode())
	}
	return p.toResult(body, resp.Body())
}

func (p *PhotonProvider) Reverse(ctx context.Context, lat, lng float64, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body photonResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(lat, 'f', -1, 64),
			"lon": strconv.FormatFloat(lng, 'f', -1, 64),
		}).
		SetResult(&body).
		Get("/reverse")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("photon reverse returned status %d", resp.StatusCode())
	}
	return p.toResult(body, resp.Body())
}

func (p *PhotonProvider) toResult(body photonResponse, raw []byte) (*Result, error) {
	if len(body.Features) == 0 {
		return nil, nil
	}
	f := body.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("photon returned malformed geometry")
	}

	props := f.Properties
	var parts []string
	if props.Street != "" {
		line := props.Street
		if props.HouseNumber != "" {
			line = props.HouseNumber + " " + props.Street
		}
		parts = append(parts, line)
	} else if props.Name != "" {
		parts = append(parts, props.Name)
	}
	for _, s := range []string{props.City, props.State, props.PostCode, props.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	formatted := strings.Join(parts, ", ")
	if formatted == "" {
		return nil, nil
	}

	return &Result{
		Latitude:         f.Geometry.Coordinates[1],
		Longitude:        f.Geometry.Coordinates[0],
		FormattedAddress: formatted,
		Provider:         p.Name(),
		Raw:              append([]byte(nil), raw...),
	}, nil
}
