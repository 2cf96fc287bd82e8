package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on a NATS JetStream KeyValue bucket so multiple
// host replicas can share one operation cache.
type NATSStore struct {
	conn   *nats.Conn
	kv     jetstream.KeyValue
	bucket string
}

// NewNATSStore connects to NATS and creates or opens the KV bucket.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "RegSync persisted operation cache",
			History:     1, // Keep only latest value
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket: %w", err)
		}
	}

	slog.Info("NATS cache store initialized", "url", url, "bucket", bucket)

	return &NATSStore{conn: conn, kv: kv, bucket: bucket}, nil
}

// encodeKey maps cache keys onto the NATS KV key alphabet. KV keys may not
// contain ':', which the operation namespace prefix uses.
func encodeKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

// Get retrieves the value for key.
func (n *NATSStore) Get(ctx context.Context, key string) (string, error) {
	entry, err := n.kv.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", ErrNotFound{Key: key}
	}
	if err != nil {
		return "", fmt.Errorf("kv get: %w", err)
	}
	return string(entry.Value()), nil
}

// Set stores value under key.
func (n *NATSStore) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.Put(ctx, encodeKey(key), []byte(value)); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Delete removes key. Absent keys are a no-op.
func (n *NATSStore) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (n *NATSStore) Close() error {
	n.conn.Close()
	return nil
}
