package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// ExportStore implements ports.ExportStore using Valkey (Redis-compatible).
type ExportStore struct {
	client valkey.Client
	prefix string
}

// New creates a new Valkey client. Keys are namespaced under prefix.
func New(addr, prefix string) (*ExportStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &ExportStore{client: client, prefix: prefix}, nil
}

// Get retrieves a value by key. Missing or expired keys yield
// domain.ErrExportNotFound.
func (c *ExportStore) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrExportNotFound
		}
		return nil, err
	}
	return cmd.AsBytes()
}

// Set stores a value that expires after ttl.
func (c *ExportStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := c.client.Do(ctx,
		c.client.B().Set().Key(c.prefix+key).Value(valkey.BinaryString(value)).Ex(ttl).Build(),
	)
	return cmd.Error()
}

// Delete removes a key.
func (c *ExportStore) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build())
	return cmd.Error()
}

// Ping checks connectivity for the readiness probe.
func (c *ExportStore) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *ExportStore) Close() {
	c.client.Close()
}
