package nhtsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

// Client decodes VINs against the NHTSA vPIC service. Used during profile
// onboarding to prefill year and model.
type Client interface {
	DecodeVIN(ctx context.Context, vin string) (*VehicleInfo, error)
}

type VehicleInfo struct {
	Year         string `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Transmission string `json:"transmission"`
	BodyClass    string `json:"body_class"`
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &client{
		log:        log.With("client", "NHTSAClient"),
		baseURL:    "https://vpic.nhtsa.dot.gov/api/vehicles",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// DecodeVIN returns nil (no error) when vPIC cannot identify the vehicle,
// so callers can fall back to manual entry.
func (c *client) DecodeVIN(ctx context.Context, vin string) (*VehicleInfo, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if vin == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/DecodeVinValues/%s?format=json", c.baseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vpic http %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Results []struct {
			ModelYear         string `json:"ModelYear"`
			Make              string `json:"Make"`
			Model             string `json:"Model"`
			TransmissionStyle string `json:"TransmissionStyle"`
			BodyClass         string `json:"BodyClass"`
		} `json:"Results"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("vpic decode error: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	r := out.Results[0]
	if r.ModelYear == "" || r.ModelYear == "0" {
		return nil, nil
	}
	return &VehicleInfo{
		Year:         r.ModelYear,
		Make:         r.Make,
		Model:        r.Model,
		Transmission: r.TransmissionStyle,
		BodyClass:    r.BodyClass,
	}, nil
}
