// Package store connects to the Elasticsearch-shaped metrics store,
// gates on cluster health, executes aggregation queries and flattens
// the returned bucket trees.
package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned when cluster health is outside the
// allowed status set.
var ErrStoreUnavailable = errors.New("metrics store unavailable")

// ErrStoreQuery is returned when a search request fails.
var ErrStoreQuery = errors.New("metrics store query failed")

// DefaultHostname is the fallback store URL when none is configured.
const DefaultHostname = "https://gracc.opensciencegrid.org/q"

// DefaultTimeout bounds every request to the store.
const DefaultTimeout = 60 * time.Second

// Config holds store connection settings.
type Config struct {
	Hostname           string
	OKStatuses         []string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Searcher is the query surface reports depend on.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error)
}

// Client is a health-gated store client. It is owned by a single
// report run and discarded afterward.
type Client struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

// SearchResult is the decoded search response. Aggregations stay raw
// until the flattener walks them.
type SearchResult struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []json.RawMessage `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// NewClient connects to the store and refuses to proceed unless the
// cluster health status is in the allowed set (default: green only).
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.OKStatuses) == 0 {
		cfg.OKStatuses = []string{"green"}
	}

	transport := &http.Transport{
		ResponseHeaderTimeout: cfg.Timeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Hostname},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	client := &Client{es: es, logger: logger}
	if err := client.checkHealth(ctx, cfg.OKStatuses); err != nil {
		return nil, err
	}
	logger.Debug("Connected to metrics store", zap.String("hostname", cfg.Hostname))
	return client, nil
}

// checkHealth verifies cluster status against the allowed set.
func (c *Client) checkHealth(ctx context.Context, okStatuses []string) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: health check failed: %v", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: health check returned %s", ErrStoreUnavailable, res.Status())
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return fmt.Errorf("%w: undecodable health response: %v", ErrStoreUnavailable, err)
	}

	for _, ok := range okStatuses {
		if health.Status == ok {
			return nil
		}
	}
	return fmt.Errorf("%w: cluster status %q not in allowed set %v",
		ErrStoreUnavailable, health.Status, okStatuses)
}

// Search executes one aggregation query against index.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%w: unencodable query: %v", ErrStoreQuery, err)
	}

	c.logger.Debug("Executing store query",
		zap.String("index", index),
		zap.String("body", buf.String()))

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: response status %s", ErrStoreQuery, res.Status())
	}

	result := &SearchResult{}
	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrStoreQuery, err)
	}

	c.logger.Debug("Store query completed",
		zap.Int("took_ms", result.Took),
		zap.Int("total_hits", result.Hits.Total.Value))
	return result, nil
}
