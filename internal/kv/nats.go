package kv

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
	Bucket   string
}

// NATSStore is a Store backed by a JetStream key-value bucket.
type NATSStore struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
	logger *logger.Logger
}

// ConnectNATS establishes a NATS connection and ensures the key-value bucket
// exists.
func ConnectNATS(ctx context.Context, cfg NATSConfig, log *logger.Logger) (*NATSStore, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	// Add TLS configuration if certificates are provided
	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	// Add token authentication if provided
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket, err := ensureBucket(ctx, js, cfg.Bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSStore{
		conn:   nc,
		bucket: bucket,
		logger: log,
	}, nil
}

func ensureBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	bucket, err := js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("failed to look up bucket: %w", err)
	}

	bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Per-device conversation logs, summaries, counters, and settings",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return bucket, nil
}

func (s *NATSStore) Get(ctx context.Context, key string) (string, error) {
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return string(entry.Value()), nil
}

func (s *NATSStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.bucket.PutString(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

func (s *NATSStore) Remove(ctx context.Context, key string) error {
	if err := s.bucket.Purge(ctx, key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *NATSStore) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (s *NATSStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
