// Package catalog fetches the bird reference catalog from the upstream REST
// API. Results are cached in the local store so the catalog keeps working
// offline.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/types"
)

// ClientInterface defines the catalog client operations.
type ClientInterface interface {
	ListCategories(ctx context.Context) ([]*types.BirdCategory, error)
	ListSpecies(ctx context.Context, categoryID string) ([]*types.BirdSpecies, error)
	SearchSpecies(ctx context.Context, query string) ([]*types.BirdSpecies, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type categoryResponse struct {
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}

type speciesResponse struct {
	Species []struct {
		ID             string `json:"id"`
		CommonName     string `json:"common_name"`
		ScientificName string `json:"scientific_name"`
		CategoryID     string `json:"category_id"`
		Description    string `json:"description"`
		ImageURL       string `json:"image_url"`
		AudioURL       string `json:"audio_url"`
	} `json:"species"`
}

// ListCategories fetches the top-level bird categories.
func (c *Client) ListCategories(ctx context.Context) ([]*types.BirdCategory, error) {
	var resp categoryResponse
	if err := c.get(ctx, "/categories", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*types.BirdCategory, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		out = append(out, &types.BirdCategory{ID: cat.ID, Name: cat.Name})
	}
	return out, nil
}

// ListSpecies fetches the species of one category.
func (c *Client) ListSpecies(ctx context.Context, categoryID string) ([]*types.BirdSpecies, error) {
	params := url.Values{}
	params.Add("category_id", categoryID)
	var resp speciesResponse
	if err := c.get(ctx, "/species", params, &resp); err != nil {
		return nil, err
	}
	return c.decodeSpecies(&resp), nil
}

// SearchSpecies searches the catalog by common or scientific name.
func (c *Client) SearchSpecies(ctx context.Context, query string) ([]*types.BirdSpecies, error) {
	params := url.Values{}
	params.Add("q", query)
	var resp speciesResponse
	if err := c.get(ctx, "/species/search", params, &resp); err != nil {
		return nil, err
	}
	return c.decodeSpecies(&resp), nil
}

func (c *Client) decodeSpecies(resp *speciesResponse) []*types.BirdSpecies {
	now := time.Now().UTC()
	out := make([]*types.BirdSpecies, 0, len(resp.Species))
	for _, sp := range resp.Species {
		out = append(out, &types.BirdSpecies{
			ID:             sp.ID,
			CommonName:     sp.CommonName,
			ScientificName: sp.ScientificName,
			CategoryID:     sp.CategoryID,
			Description:    sp.Description,
			ImageURL:       sp.ImageURL,
			AudioURL:       sp.AudioURL,
			CachedAt:       now,
		})
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	finalURL := c.baseURL + path
	if len(params) > 0 {
		finalURL = fmt.Sprintf("%s?%s", finalURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.GetLogger().Errorw("Catalog request failed", "path", path, "error", err)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.GetLogger().Warnw("Catalog API returned non-OK status", "path", path, "statusCode", resp.StatusCode)
		return fmt.Errorf("catalog API returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
