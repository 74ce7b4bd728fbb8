package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const (
	breakerName  = "catalog"
	maxBodyBytes = 4 << 20
)

var errNotFound = errors.New("catalog: not found")

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	// BreakerMinRequests and BreakerFailureRatio decide when the breaker trips.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	Metrics             *metrics.Metrics
	Logger              logrus.FieldLogger
}

// Client reads products from a fakestoreapi-compatible catalog. It never
// retries; failures are reported as RemoteUnavailable.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("catalog: invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.BreakerMinRequests == 0 {
		opts.BreakerMinRequests = 5
	}
	if opts.BreakerFailureRatio <= 0 {
		opts.BreakerFailureRatio = 0.5
	}
	logger := logging.OrDiscard(opts.Logger)

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state change")
			opts.Metrics.BreakerState(name, to)
		},
	}
	opts.Metrics.BreakerState(breakerName, gobreaker.StateClosed)

	return &Client{
		baseURL: base,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}, nil
}

// Products lists the whole catalog.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	const op = "catalog.Products"
	body, err := c.get(ctx, op, "/products")
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, fmt.Errorf("decode: %w", err))
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

// Categories lists category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	const op = "catalog.Categories"
	body, err := c.get(ctx, op, "/products/categories")
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, fmt.Errorf("decode: %w", err))
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Product fetches one product. The upstream answers unknown ids with an empty
// 200 response, which is reported as RecordNotFound like a 404.
func (c *Client) Product(ctx context.Context, id int) (*domain.Product, error) {
	const op = "catalog.Product"
	if id <= 0 {
		return nil, domain.NewError(domain.KindValidation, op, "product id must be positive")
	}
	body, err := c.get(ctx, op, "/products/"+strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, domain.NewError(domain.KindRecordNotFound, op, "product not found")
	}
	var p domain.Product
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, fmt.Errorf("decode: %w", err))
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, errNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, domain.NewError(domain.KindRecordNotFound, op, "product not found")
		}
		c.logger.WithError(err).WithField("path", path).Warn("catalog: request failed")
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	return body, nil
}
