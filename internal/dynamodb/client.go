package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cenkalti/backoff/v4"

	"github.com/numera/numera/internal/config"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/types"
)

// DefaultMaxTxAttempts bounds transaction retries when the configuration
// does not say otherwise
const DefaultMaxTxAttempts = 5

// IClient defines the interface for ledger store operations
type IClient interface {
	// WithTx runs fn inside an optimistic transaction. The closure is
	// re-executed from scratch when the commit hits a version conflict, up
	// to the configured attempt budget; errors returned by fn itself are
	// never retried.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// TxFromContext returns the transaction from context if it exists
	TxFromContext(ctx context.Context) *Tx

	// DB returns the underlying DynamoDB client for reads outside a
	// transaction
	DB() *dynamodb.Client

	// Table returns the ledger table name
	Table() string
}

// Client wraps the DynamoDB client to provide optimistic transaction
// management over the single ledger table
type Client struct {
	db            *dynamodb.Client
	table         string
	maxTxAttempts int
	logger        *logger.Logger
}

// NewClient creates a new ledger store client
func NewClient(cfg *config.Configuration, logger *logger.Logger) (IClient, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(cfg.DynamoDB.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if cfg.DynamoDB.Endpoint != "" {
		// Local development against dynamodb-local
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		})
	}

	return &Client{
		db:            dynamodb.NewFromConfig(awsCfg, opts...),
		table:         cfg.DynamoDB.Table,
		maxTxAttempts: cfg.DynamoDB.MaxTxAttempts,
		logger:        logger,
	}, nil
}

// WithTx runs fn inside an optimistic transaction
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// If we're already in a transaction, reuse it and do not start a new one
	// or commit it
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	attempts := c.maxTxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxTxAttempts
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newCommitBackOff(), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	fromClosure := false
	operation := func() error {
		attempt++
		tx := newTx(c)
		txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

		if err := fn(txCtx); err != nil {
			// The closure decided; its errors are surfaced as-is
			fromClosure = true
			return backoff.Permanent(err)
		}
		fromClosure = false

		if err := tx.commit(ctx); err != nil {
			if ierr.IsVersionConflict(err) {
				c.logger.Debugw("retrying transaction after commit conflict",
					"attempt", attempt,
				)
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if !fromClosure && ierr.IsVersionConflict(err) {
			return ierr.WithError(err).
				WithHint("The operation kept colliding with concurrent ledger updates. Please try again.").
				WithReportableDetails(map[string]any{
					"attempts": attempt,
				}).
				Mark(ierr.ErrVersionConflict)
		}
		return err
	}

	c.logger.Debugw("committed ledger transaction", "attempts", attempt)
	return nil
}

// TxFromContext returns the transaction from context if it exists
func (c *Client) TxFromContext(ctx context.Context) *Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*Tx); ok {
		return tx
	}
	return nil
}

// DB returns the underlying DynamoDB client
func (c *Client) DB() *dynamodb.Client {
	return c.db
}

// Table returns the ledger table name
func (c *Client) Table() string {
	return c.table
}

// newCommitBackOff spaces out commit retries. The retry budget is bounded by
// attempt count, not wall clock.
func newCommitBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}
