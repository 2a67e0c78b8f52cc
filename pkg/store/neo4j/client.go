package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
)

// ErrNotConfigured is returned by NewClientFromEnv when NEO4J_URI is unset.
var ErrNotConfigured = errors.New("neo4j: NEO4J_URI not set")

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string

	batchSize     int
	progressEvery int
}

type NewClientParams struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
	// BatchSize caps the rows sent per UNWIND statement.
	BatchSize int
	// ProgressEvery logs export progress every n concepts.
	ProgressEvery int
}

func NewClient(ctx context.Context, params NewClientParams) (*Client, error) {
	if params.URI == "" {
		return nil, ErrNotConfigured
	}
	if params.User == "" {
		params.User = "neo4j"
	}
	if params.Timeout <= 0 {
		params.Timeout = 10 * time.Second
	}
	if params.MaxPool <= 0 {
		params.MaxPool = 50
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 1000
	}
	if params.ProgressEvery <= 0 {
		params.ProgressEvery = 1000
	}

	auth := neo4j.BasicAuth(params.User, params.Password, "")
	driver, err := neo4j.NewDriverWithContext(params.URI, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = params.MaxPool
		cfg.SocketConnectTimeout = params.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Client{
		Driver:        driver,
		Database:      params.Database,
		batchSize:     params.BatchSize,
		progressEvery: params.ProgressEvery,
	}, nil
}

// NewClientFromEnv reads NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD,
// NEO4J_DATABASE, NEO4J_TIMEOUT_SECONDS, NEO4J_MAX_POOL_SIZE and
// NEO4J_BATCH_SIZE.
func NewClientFromEnv(ctx context.Context) (*Client, error) {
	return NewClient(ctx, NewClientParams{
		URI:       util.GetEnv("NEO4J_URI"),
		User:      util.GetEnv("NEO4J_USER"),
		Password:  util.GetEnv("NEO4J_PASSWORD"),
		Database:  util.GetEnv("NEO4J_DATABASE"),
		Timeout:   time.Duration(util.GetEnvNumeric("NEO4J_TIMEOUT_SECONDS", 10) * float64(time.Second)),
		MaxPool:   int(util.GetEnvNumeric("NEO4J_MAX_POOL_SIZE", 50)),
		BatchSize: int(util.GetEnvNumeric("NEO4J_BATCH_SIZE", 1000)),
	})
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.Database,
	})
}
