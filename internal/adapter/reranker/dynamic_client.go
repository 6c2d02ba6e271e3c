package reranker

import (
	"context"
	"fmt"
	"sync"

	"textlens/internal/settings"
)

// DynamicClient resolves the rerank provider and API key from settings on
// every call, so key rotation takes effect without a restart.
type DynamicClient struct {
	settingsSvc *settings.Service
	mu          sync.RWMutex
	client      *Client
	provider    string
	key         string
	baseURL     string
}

func NewDynamicClient(svc *settings.Service) *DynamicClient {
	return &DynamicClient{settingsSvc: svc}
}

// SetBaseURL overrides the provider endpoint on clients created afterwards.
func (d *DynamicClient) SetBaseURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseURL = url
	d.client = nil
}

func (d *DynamicClient) Rerank(ctx context.Context, query string, docs []string) ([]int, error) {
	s, err := d.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if s.RerankProvider == "" || s.RerankProvider == "none" {
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	return d.getClient(s.RerankProvider, s.RerankAPIKey).Rerank(ctx, query, docs)
}

func (d *DynamicClient) getClient(provider, key string) *Client {
	d.mu.RLock()
	if d.client != nil && d.provider == provider && d.key == key {
		defer d.mu.RUnlock()
		return d.client
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil && d.provider == provider && d.key == key {
		return d.client
	}

	client := NewClient(provider, key)
	if d.baseURL != "" {
		client.SetBaseURL(d.baseURL)
	}

	d.client = client
	d.provider = provider
	d.key = key
	return client
}
