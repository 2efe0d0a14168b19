package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awstypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/numera/numera/internal/domain/sequence"
	store "github.com/numera/numera/internal/dynamodb"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/types"
)

type sequenceRepository struct {
	client store.IClient
	logger *logger.Logger
}

func NewSequenceRepository(client store.IClient, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{
		client: client,
		logger: logger,
	}
}

// counterItem is the storage shape of a sequence counter. Amount-free, so
// plain attributevalue marshaling is safe here.
type counterItem struct {
	PK           string `dynamodbav:"pk"`
	SK           string `dynamodbav:"sk"`
	CustomerID   string `dynamodbav:"customer_id"`
	DocumentType string `dynamodbav:"document_type"`
	Year         int    `dynamodbav:"year"`
	LastValue    int64  `dynamodbav:"last_value"`
	Version      int64  `dynamodbav:"version"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

func (r *sequenceRepository) Get(ctx context.Context, customerID string, docType types.DocumentType, year int) (*sequence.Counter, error) {
	span := StartRepositorySpan(ctx, "sequence", "get", map[string]interface{}{
		"customer_id":   customerID,
		"document_type": docType,
		"year":          year,
	})
	defer FinishSpan(span)

	pk := customerPK(customerID)
	sk := sequenceSK(docType, year)

	var raw map[string]awstypes.AttributeValue
	var found bool
	var err error

	if tx := r.client.TxFromContext(ctx); tx != nil {
		raw, found, err = tx.Get(ctx, pk, sk)
	} else {
		raw, found, err = r.getDirect(ctx, pk, sk)
	}
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	if !found {
		SetSpanSuccess(span)
		return &sequence.Counter{
			CustomerID:   customerID,
			DocumentType: docType,
			Year:         year,
			LastValue:    0,
		}, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to decode sequence counter").
			Mark(ierr.ErrDatabase)
	}

	counter, err := item.toDomain()
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	SetSpanSuccess(span)
	return counter, nil
}

func (r *sequenceRepository) Save(ctx context.Context, counter *sequence.Counter) error {
	span := StartRepositorySpan(ctx, "sequence", "save", map[string]interface{}{
		"customer_id":   counter.CustomerID,
		"document_type": counter.DocumentType,
		"year":          counter.Year,
		"last_value":    counter.LastValue,
	})
	defer FinishSpan(span)

	tx := r.client.TxFromContext(ctx)
	if tx == nil {
		err := ierr.NewError("sequence counters can only be saved inside a transaction").
			WithHint("Number allocation must run through the transactional store").
			Mark(ierr.ErrSystem)
		SetSpanError(span, err)
		return err
	}

	now := time.Now().UTC()
	if counter.CreatedAt.IsZero() {
		counter.CreatedAt = now
	}
	counter.UpdatedAt = now

	item := counterItem{
		PK:           customerPK(counter.CustomerID),
		SK:           sequenceSK(counter.DocumentType, counter.Year),
		CustomerID:   counter.CustomerID,
		DocumentType: string(counter.DocumentType),
		Year:         counter.Year,
		LastValue:    counter.LastValue,
		Version:      counter.Version,
		CreatedAt:    types.FormatSortableTimestamp(counter.CreatedAt),
		UpdatedAt:    types.FormatSortableTimestamp(counter.UpdatedAt),
	}

	raw, err := attributevalue.MarshalMap(item)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to encode sequence counter").
			Mark(ierr.ErrDatabase)
	}

	tx.Put(item.PK, item.SK, raw)
	SetSpanSuccess(span)
	return nil
}

func (r *sequenceRepository) getDirect(ctx context.Context, pk, sk string) (map[string]awstypes.AttributeValue, bool, error) {
	out, err := r.client.DB().GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName:      aws.String(r.client.Table()),
		Key:            store.KeyAttributes(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to read sequence counter").
			Mark(ierr.ErrDatabase)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	return out.Item, true, nil
}

func (i counterItem) toDomain() (*sequence.Counter, error) {
	createdAt, err := types.ParseSortableTimestamp(i.CreatedAt)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Sequence counter carries a malformed timestamp").
			Mark(ierr.ErrDatabase)
	}
	updatedAt, err := types.ParseSortableTimestamp(i.UpdatedAt)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Sequence counter carries a malformed timestamp").
			Mark(ierr.ErrDatabase)
	}

	return &sequence.Counter{
		CustomerID:   i.CustomerID,
		DocumentType: types.DocumentType(i.DocumentType),
		Year:         i.Year,
		LastValue:    i.LastValue,
		Version:      i.Version,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
