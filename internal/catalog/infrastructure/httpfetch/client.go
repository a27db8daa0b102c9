package httpfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/distriar/catalog-sync/internal/catalog/domain"
)

// ErrNoSource is returned when neither a snapshot location nor the live
// endpoint produced data.
var ErrNoSource = errors.New("no catalog source responded")

// Client fetches product and promotion listings. Snapshot locations are
// tried in order before the live endpoint so a serverless demo deployment
// (static JSON files, no backend) keeps working; locations without a URL
// scheme are read from the local filesystem.
type Client struct {
	log              *slog.Logger
	http             *http.Client
	apiBase          string
	productSnapshots []string
	promoSnapshots   []string
	images           domain.ImageResolver
}

type Config struct {
	APIBase          string
	ProductSnapshots []string
	PromoSnapshots   []string
	Images           domain.ImageResolver
	Timeout          time.Duration
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:              log,
		http:             &http.Client{Timeout: timeout},
		apiBase:          strings.TrimSuffix(cfg.APIBase, "/"),
		productSnapshots: cfg.ProductSnapshots,
		promoSnapshots:   cfg.PromoSnapshots,
		images:           cfg.Images,
	}
}

// FetchProducts tries snapshots first, then the live /products endpoint.
// The returned fingerprint is a serialization of the raw rows, used by the
// poller to short-circuit unchanged payloads.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, string, error) {
	raw, err := c.read(ctx, c.productSnapshots, "/products")
	if err != nil {
		return nil, "", err
	}
	return c.decodeProducts(raw)
}

// SnapshotProducts consults only the snapshot locations. Used by the
// periodic poll, which must not hammer the live endpoint.
func (c *Client) SnapshotProducts(ctx context.Context) ([]domain.Product, string, error) {
	raw, err := c.read(ctx, c.productSnapshots, "")
	if err != nil {
		return nil, "", err
	}
	return c.decodeProducts(raw)
}

func (c *Client) FetchPromotions(ctx context.Context) ([]domain.Promotion, string, error) {
	raw, err := c.read(ctx, c.promoSnapshots, "/promotions")
	if err != nil {
		return nil, "", err
	}
	var rows []domain.PromotionRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, "", fmt.Errorf("decode promotions: %w", err)
	}
	fp, err := fingerprint(rows)
	if err != nil {
		return nil, "", err
	}
	return domain.MapPromotions(rows, c.images), fp, nil
}

func (c *Client) decodeProducts(raw []byte) ([]domain.Product, string, error) {
	var rows []domain.ProductRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, "", fmt.Errorf("decode products: %w", err)
	}
	fp, err := fingerprint(rows)
	if err != nil {
		return nil, "", err
	}
	return domain.MapProducts(rows, c.images), fp, nil
}

// read walks the snapshot locations in order and falls back to the live
// endpoint (apiBase+remotePath) when none respond. An empty remotePath
// disables the live fallback.
func (c *Client) read(ctx context.Context, snapshots []string, remotePath string) ([]byte, error) {
	for _, loc := range snapshots {
		raw, err := c.readOne(ctx, loc)
		if err != nil {
			c.log.Debug("snapshot unavailable", "location", loc, "err", err)
			continue
		}
		return raw, nil
	}
	if remotePath != "" && c.apiBase != "" {
		raw, err := c.readOne(ctx, c.apiBase+remotePath)
		if err == nil {
			return raw, nil
		}
		c.log.Debug("live endpoint unavailable", "path", remotePath, "err", err)
	}
	return nil, ErrNoSource
}

func (c *Client) readOne(ctx context.Context, loc string) ([]byte, error) {
	if !strings.Contains(loc, "://") {
		return os.ReadFile(loc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, loc)
	}
	return io.ReadAll(resp.Body)
}

func fingerprint(rows any) (string, error) {
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
