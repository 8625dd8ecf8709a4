package geocoding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ArcGISProvider Esri World Geocoding Service 适配器
// The free endpoint works without an API key for non-stored results.
type ArcGISProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

const arcgisDefaultURL = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"

func NewArcGISProvider(baseURL, userAgent string, logger *zap.Logger) *ArcGISProvider {
	if baseURL == "" {
		baseURL = arcgisDefaultURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &ArcGISProvider{httpClient: client, logger: logger}
}

func (p *ArcGISProvider) Name() string { return "arcgis" }

type arcgisLocation struct {
	X float64 `json:"x"` // longitude
	Y float64 `json:"y"` // latitude
}

type arcgisCandidatesResponse struct {
	Candidates []struct {
		Address  string         `json:"address"`
		Location arcgisLocation `json:"location"`
	} `json:"candidates"`
}

type arcgisReverseResponse struct {
	Address struct {
		MatchAddr string `json:"Match_addr"`
		LongLabel string `json:"LongLabel"`
	} `json:"address"`
	Location arcgisLocation `json:"location"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *ArcGISProvider) Geocode(ctx context.Context, address string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body arcgisCandidatesResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"f":            "json",
			"singleLine":   address,
			"maxLocations": "1",
		}).
		SetResult(&body).
		Get("/findAddressCandidates")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("arcgis geocode returned status %d", resp.StatusCode())
	}
	if len(body.Candidates) == 0 {
		return nil, nil
	}
	best := body.Candidates[0]
	return &Result{
		Latitude:         best.Location.Y,
		Longitude:        best.Location.X,
		FormattedAddress: best.Address,
		Provider:         p.Name(),
		Raw:              append([]byte(nil), resp.Body()...),
	}, nil
}

func (p *ArcGISProvider) Reverse(ctx context.Context, lat, lng float64, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// location is "x,y" i.e. "lng,lat"
	loc := strconv.FormatFloat(lng, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)

	var body arcgisReverseResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"f":        "json",
			"location": loc,
		}).
		SetResult(&body).
		Get("/reverseGeocode")
	if err != nil {
		return nil, transient(p.Name(), err)
	}
	if resp.IsError() {
		if retriableStatus(resp.StatusCode()) {
			return nil, transient(p.Name(), fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil, fmt.Errorf("arcgis reverse returned status %d", resp.StatusCode())
	}
	// ArcGIS reports "no address found" as an error object in a 200 body.
	if body.Error != nil {
		return nil, nil
	}
	formatted := body.Address.LongLabel
	if formatted == "" {
		formatted = body.Address.MatchAddr
	}
	if formatted == "" {
		return nil, nil
	}
	return &Result{
		Latitude:         body.Location.Y,
		Longitude:        body.Location.X,
		FormattedAddress: formatted,
		Provider:         p.Name(),
		Raw:              append([]byte(nil), resp.Body()...),
	}, nil
}
