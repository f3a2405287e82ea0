package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

const bigDataCloudBaseURL = "https://api.bigdatacloud.net"

// BigDataCloudGeocoder reverse-geocodes coordinates with the keyless
// BigDataCloud client endpoint.
type BigDataCloudGeocoder struct {
	name    string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewBigDataCloudGeocoder(client *http.Client, lang string, opts Options) *BigDataCloudGeocoder {
	if lang == "" {
		lang = "en"
	}
	return &BigDataCloudGeocoder{
		name:    "bigdatacloud",
		baseURL: strings.TrimRight(opts.baseURLOr(bigDataCloudBaseURL), "/"),
		lang:    lang,
		httpCfg: opts.httpConfig(client),
		circuit: newCircuitBreaker("bigdatacloud"),
	}
}

func (g *BigDataCloudGeocoder) Name() string {
	return g.name
}

func (g *BigDataCloudGeocoder) Reverse(ctx context.Context, c weather.Coordinates) (string, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
		values.Set("localityLanguage", g.lang)

		u := fmt.Sprintf("%s/data/reverse-geocode-client?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, g.name, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return "", err
	}

	var payload struct {
		City     string `json:"city"`
		Locality string `json:"locality"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return "", err
	}

	if name := strings.TrimSpace(payload.City); name != "" {
		return name, nil
	}
	if name := strings.TrimSpace(payload.Locality); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("%w: no place at %s", weather.ErrNotFound, c)
}
