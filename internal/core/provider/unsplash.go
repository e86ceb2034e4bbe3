package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// UnsplashClient looks up a stock photo and its attribution for a
// recipe title. Lookups are best-effort: callers treat any error as
// "no image".
type UnsplashClient struct {
	client *resty.Client
	cfg    config.UnsplashConfig
}

// NewUnsplashClient creates the image lookup client.
func NewUnsplashClient(cfg *config.Config) *UnsplashClient {
	client := resty.New().
		SetBaseURL(cfg.Providers.Unsplash.BaseURL).
		SetTimeout(cfg.Providers.Unsplash.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Client-ID %s", cfg.Providers.Unsplash.AccessKey))

	return &UnsplashClient{
		client: client,
		cfg:    cfg.Providers.Unsplash,
	}
}

type photoSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		Links struct {
			DownloadLocation string `json:"download_location"`
		} `json:"links"`
		User struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
	} `json:"results"`
}

// Lookup returns the best matching photo for a query, with the
// attribution the photo license requires.
func (c *UnsplashClient) Lookup(ctx context.Context, query string) (recipe.ImageMeta, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       query + " food",
			"per_page":    "1",
			"orientation": "landscape",
		}).
		Get("/search/photos")
	common.LogProviderCall("unsplash", time.Since(start), err, "")
	if err != nil {
		return recipe.ImageMeta{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return recipe.ImageMeta{}, fmt.Errorf("unsplash returned status %d", resp.StatusCode())
	}

	var payload photoSearchResponse
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return recipe.ImageMeta{}, err
	}
	if len(payload.Results) == 0 {
		return recipe.ImageMeta{}, nil
	}

	photo := payload.Results[0]
	return recipe.ImageMeta{
		URL:                    photo.URLs.Regular,
		DownloadLocation:       photo.Links.DownloadLocation,
		PhotographerName:       photo.User.Name,
		PhotographerProfileURL: photo.User.Links.HTML,
	}, nil
}
