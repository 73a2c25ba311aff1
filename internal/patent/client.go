// Copyright (c) 2026 IP Platform. All rights reserved.

package patent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/constants"
	"github.com/ipplatform/backend/internal/platform/ctxutil"
)

// Cache lifetimes. Search results churn faster than individual records.
const (
	searchCacheTTL = 15 * time.Minute
	detailCacheTTL = 6 * time.Hour

	upstreamTimeout = 20 * time.Second
)

// Client proxies the external patent-search provider with a Redis
// read-through cache in front of it.
//
// # Caching
//
// Responses are cached verbatim as raw JSON. A cache failure degrades to an
// upstream call; it never fails the request.
type Client struct {
	httpClient *http.Client
	cache      *redis.Client
	baseURL    string
	apiKey     string
}

// NewClient constructs a [Client] for the configured provider.
func NewClient(cache *redis.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: upstreamTimeout},
		cache:      cache,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

/*
Search queries the provider for patents matching the query string.

Parameters:
  - context: context.Context
  - query: string (Free-text search expression)
  - page: int (1-indexed result page)

Returns:
  - json.RawMessage: Provider response, passed through verbatim
  - error: BadGateway on upstream failures
*/
func (client *Client) Search(context context.Context, query string, page int) (json.RawMessage, error) {
	cacheKey := constants.RedisPrefixPatentSearch + hashKey(query+"|"+strconv.Itoa(page))

	if cached, ok := client.fromCache(context, cacheKey); ok {
		return cached, nil
	}

	endpoint := client.baseURL + "/patent/search?" + url.Values{
		"query": {query},
		"page":  {strconv.Itoa(page)},
	}.Encode()

	body, err := client.fetch(context, endpoint)
	if err != nil {
		return nil, err
	}

	client.toCache(context, cacheKey, body, searchCacheTTL)
	return body, nil
}

/*
Detail fetches one record (patent, trademark, ...) from the provider.

Parameters:
  - context: context.Context
  - kind: string (Record category path segment)
  - id: string (Provider record identifier)

Returns:
  - json.RawMessage: Provider response, passed through verbatim
  - error: NotFound for unknown records, BadGateway on upstream failures
*/
func (client *Client) Detail(context context.Context, kind, id string) (json.RawMessage, error) {
	cacheKey := constants.RedisPrefixPatentDetail + hashKey(kind+"|"+id)

	if cached, ok := client.fromCache(context, cacheKey); ok {
		return cached, nil
	}

	endpoint := client.baseURL + "/" + url.PathEscape(kind) + "/" + url.PathEscape(id)

	body, err := client.fetch(context, endpoint)
	if err != nil {
		return nil, err
	}

	client.toCache(context, cacheKey, body, detailCacheTTL)
	return body, nil
}

// fetch performs one authenticated upstream GET.
func (client *Client) fetch(context context.Context, endpoint string) (json.RawMessage, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("patent_client_request_failed: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if client.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+client.apiKey)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, apperr.BadGateway("Patent search provider is unreachable")
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return nil, apperr.NotFound("Record not found at the patent provider")
	case response.StatusCode == http.StatusTooManyRequests:
		return nil, apperr.BadGateway("Patent search provider rate limit reached")
	case response.StatusCode >= 400:
		return nil, apperr.BadGateway("Patent search provider returned an error")
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, apperr.BadGateway("Patent search provider response could not be read")
	}
	return body, nil
}

// fromCache is a best-effort read; any cache failure is treated as a miss.
func (client *Client) fromCache(context context.Context, key string) (json.RawMessage, bool) {
	if client.cache == nil {
		return nil, false
	}
	cached, err := client.cache.Get(context, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			ctxutil.GetLogger(context).Warn("patent_cache_read_failed", "error", err.Error())
		}
		return nil, false
	}
	return cached, true
}

// toCache is a best-effort write; failures are logged and dropped.
func (client *Client) toCache(context context.Context, key string, body []byte, ttl time.Duration) {
	if client.cache == nil {
		return
	}
	if err := client.cache.Set(context, key, body, ttl).Err(); err != nil {
		ctxutil.GetLogger(context).Warn("patent_cache_write_failed", "error", err.Error())
	}
}

// hashKey keeps arbitrary user input out of Redis key space.
func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}
