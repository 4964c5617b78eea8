package objstore

import "time"

// Provider identifies the object store backend.
type Provider string

const (
	ProviderMinIO  Provider = "minio"
	ProviderMemory Provider = "memory"
)

// Config holds all settings needed to connect to an object store backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string

	// Bucket is the single bucket holding the whole virtual filesystem.
	Bucket string

	// DialTimeout bounds establishing a new connection.
	DialTimeout time.Duration

	// CallTimeout bounds each non-streaming store call end to end.
	CallTimeout time.Duration

	// Retry controls how transient failures are retried.
	Retry RetryConfig
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey, bucket string) *Config {
	return &Config{
		Provider:    ProviderMinIO,
		Endpoint:    endpoint,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		Bucket:      bucket,
		UseSSL:      false,
		DialTimeout: 5 * time.Second,
		CallTimeout: 30 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}
