package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awstypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/numera/numera/internal/domain/document"
	store "github.com/numera/numera/internal/dynamodb"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/types"
)

type documentRepository struct {
	client store.IClient
	logger *logger.Logger
}

func NewDocumentRepository(client store.IClient, logger *logger.Logger) document.Repository {
	return &documentRepository{
		client: client,
		logger: logger,
	}
}

// documentItem is the storage shape of a ledger document. Monetary fields
// are stored as decimal strings; attributevalue reflection cannot be
// trusted with decimal.Decimal's unexported fields.
type documentItem struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	GSI1PK string `dynamodbav:"gsi1pk"`
	GSI1SK string `dynamodbav:"gsi1sk"`

	ID             string `dynamodbav:"id"`
	CustomerID     string `dynamodbav:"customer_id"`
	DocumentNumber string `dynamodbav:"document_number"`
	DocumentType   string `dynamodbav:"document_type"`

	CustomerName  string `dynamodbav:"customer_name"`
	CustomerTaxID string `dynamodbav:"customer_tax_id,omitempty"`
	Description   string `dynamodbav:"description,omitempty"`

	Amount        string `dynamodbav:"amount"`
	Currency      string `dynamodbav:"currency"`
	PaymentMethod string `dynamodbav:"payment_method,omitempty"`

	IssueDate   string          `dynamodbav:"issue_date"`
	GeneratedAt string          `dynamodbav:"generated_at"`
	GeneratedBy generatedByItem `dynamodbav:"generated_by"`

	PaymentStatus     string   `dynamodbav:"payment_status"`
	PaidAmount        string   `dynamodbav:"paid_amount"`
	RemainingBalance  string   `dynamodbav:"remaining_balance"`
	RelatedReceiptIDs []string `dynamodbav:"related_receipt_ids,omitempty"`

	LinkageKind          string   `dynamodbav:"linkage_kind"`
	LinkedInvoiceNumbers []string `dynamodbav:"linked_invoice_numbers,omitempty"`

	StorageKey string `dynamodbav:"storage_key,omitempty"`
	StorageURL string `dynamodbav:"storage_url,omitempty"`

	Metadata map[string]string `dynamodbav:"metadata,omitempty"`
	Version  int64             `dynamodbav:"version"`

	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
	CreatedBy string `dynamodbav:"created_by,omitempty"`
	UpdatedBy string `dynamodbav:"updated_by,omitempty"`
}

type generatedByItem struct {
	UserID     string `dynamodbav:"user_id,omitempty"`
	Username   string `dynamodbav:"username,omitempty"`
	CustomerID string `dynamodbav:"customer_id,omitempty"`
}

// Create persists a new document, failing with AlreadyExists when the
// number is taken. When two writers race on the same number the loser's
// commit fails its not-exists condition and the retried closure re-reads
// the winner, turning the lost race into AlreadyExists.
func (r *documentRepository) Create(ctx context.Context, doc *document.LedgerDocument) error {
	span := StartRepositorySpan(ctx, "document", "create", map[string]interface{}{
		"customer_id":     doc.CustomerID,
		"document_number": doc.DocumentNumber,
		"document_type":   doc.DocumentType,
	})
	defer FinishSpan(span)

	var err error
	if tx := r.client.TxFromContext(ctx); tx != nil {
		err = r.createInTx(ctx, tx, doc)
	} else {
		err = r.client.WithTx(ctx, func(txCtx context.Context) error {
			return r.createInTx(txCtx, r.client.TxFromContext(txCtx), doc)
		})
	}
	if err != nil {
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *documentRepository) createInTx(ctx context.Context, tx *store.Tx, doc *document.LedgerDocument) error {
	pk := customerPK(doc.CustomerID)
	sk := documentSK(doc.DocumentNumber)

	_, found, err := tx.Get(ctx, pk, sk)
	if err != nil {
		return err
	}
	if found {
		return ierr.WithError(document.ErrDocumentNumberTaken).
			WithHintf("Document %s already exists", doc.DocumentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     doc.CustomerID,
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	raw, err := r.marshalDocument(doc)
	if err != nil {
		return err
	}

	tx.Put(pk, sk, raw)
	return nil
}

func (r *documentRepository) Get(ctx context.Context, customerID, documentNumber string) (*document.LedgerDocument, error) {
	span := StartRepositorySpan(ctx, "document", "get", map[string]interface{}{
		"customer_id":     customerID,
		"document_number": documentNumber,
	})
	defer FinishSpan(span)

	pk := customerPK(customerID)
	sk := documentSK(documentNumber)

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
		err := ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document %s was not found", documentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     customerID,
				"document_number": documentNumber,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return nil, err
	}

	doc, err := r.unmarshalDocument(raw)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	SetSpanSuccess(span)
	return doc, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *document.LedgerDocument) error {
	span := StartRepositorySpan(ctx, "document", "update", map[string]interface{}{
		"customer_id":     doc.CustomerID,
		"document_number": doc.DocumentNumber,
		"payment_status":  doc.PaymentStatus,
	})
	defer FinishSpan(span)

	var err error
	if tx := r.client.TxFromContext(ctx); tx != nil {
		err = r.updateInTx(ctx, tx, doc)
	} else {
		err = r.client.WithTx(ctx, func(txCtx context.Context) error {
			return r.updateInTx(txCtx, r.client.TxFromContext(txCtx), doc)
		})
	}
	if err != nil {
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *documentRepository) updateInTx(ctx context.Context, tx *store.Tx, doc *document.LedgerDocument) error {
	pk := customerPK(doc.CustomerID)
	sk := documentSK(doc.DocumentNumber)

	_, found, err := tx.Get(ctx, pk, sk)
	if err != nil {
		return err
	}
	if !found {
		return ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document %s was not found", doc.DocumentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     doc.CustomerID,
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrNotFound)
	}

	raw, err := r.marshalDocument(doc)
	if err != nil {
		return err
	}

	tx.Put(pk, sk, raw)
	return nil
}

// List queries the customer's documents through the gsi1 index, newest or
// oldest first per the filter order. Offset is applied client side;
// DynamoDB has no native offset.
func (r *documentRepository) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.LedgerDocument, error) {
	span := StartRepositorySpan(ctx, "document", "list", map[string]interface{}{
		"customer_id": filter.CustomerID,
	})
	defer FinishSpan(span)

	if err := filter.Validate(); err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	if len(filter.DocumentNumbers) > 0 {
		docs, err := r.getByNumbers(ctx, filter.CustomerID, filter.DocumentNumbers)
		if err != nil {
			SetSpanError(span, err)
			return nil, err
		}
		SetSpanSuccess(span)
		return docs, nil
	}

	input := r.buildQueryInput(filter, false)

	needed := -1
	if !filter.IsUnlimited() {
		needed = filter.GetOffset() + filter.GetLimit()
	}

	var docs []*document.LedgerDocument
	for {
		out, err := r.client.DB().Query(ctx, input)
		if err != nil {
			wrapped := ierr.WithError(err).
				WithHint("Failed to list documents").
				Mark(ierr.ErrDatabase)
			SetSpanError(span, wrapped)
			return nil, wrapped
		}

		for _, raw := range out.Items {
			doc, err := r.unmarshalDocument(raw)
			if err != nil {
				SetSpanError(span, err)
				return nil, err
			}
			docs = append(docs, doc)
		}

		if needed >= 0 && len(docs) >= needed {
			break
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	if offset := filter.GetOffset(); offset > 0 {
		if offset >= len(docs) {
			docs = nil
		} else {
			docs = docs[offset:]
		}
	}
	if needed >= 0 && len(docs) > filter.GetLimit() {
		docs = docs[:filter.GetLimit()]
	}

	SetSpanSuccess(span)
	return docs, nil
}

// Count returns the number of documents matching the filter. The filter
// expression runs server side so paged counts stay accurate.
func (r *documentRepository) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	span := StartRepositorySpan(ctx, "document", "count", map[string]interface{}{
		"customer_id": filter.CustomerID,
	})
	defer FinishSpan(span)

	if err := filter.Validate(); err != nil {
		SetSpanError(span, err)
		return 0, err
	}

	input := r.buildQueryInput(filter, true)

	total := 0
	for {
		out, err := r.client.DB().Query(ctx, input)
		if err != nil {
			wrapped := ierr.WithError(err).
				WithHint("Failed to count documents").
				Mark(ierr.ErrDatabase)
			SetSpanError(span, wrapped)
			return 0, wrapped
		}

		total += int(out.Count)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	SetSpanSuccess(span)
	return total, nil
}

func (r *documentRepository) getByNumbers(ctx context.Context, customerID string, numbers []string) ([]*document.LedgerDocument, error) {
	docs := make([]*document.LedgerDocument, 0, len(numbers))
	for _, number := range numbers {
		doc, err := r.Get(ctx, customerID, number)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *documentRepository) buildQueryInput(filter *types.DocumentFilter, countOnly bool) *awsdynamodb.QueryInput {
	keyCondition := "gsi1pk = :gsi1pk"
	values := map[string]awstypes.AttributeValue{
		":gsi1pk": &awstypes.AttributeValueMemberS{Value: documentGSI1PK(filter.CustomerID)},
	}
	names := map[string]string{}

	if filter.TimeRangeFilter != nil && filter.StartTime != nil && filter.EndTime != nil {
		keyCondition += " AND gsi1sk BETWEEN :range_start AND :range_end"
		values[":range_start"] = &awstypes.AttributeValueMemberS{Value: types.FormatSortableTimestamp(*filter.StartTime)}
		values[":range_end"] = &awstypes.AttributeValueMemberS{Value: types.FormatSortableTimestamp(*filter.EndTime)}
	}

	var conditions []string

	// "status" is a reserved word in DynamoDB expressions
	names["#status"] = "status"
	conditions = append(conditions, "#status = :status")
	values[":status"] = &awstypes.AttributeValueMemberS{Value: filter.GetStatus()}

	if filter.DocumentType != "" {
		conditions = append(conditions, "document_type = :document_type")
		values[":document_type"] = &awstypes.AttributeValueMemberS{Value: string(filter.DocumentType)}
	}

	if len(filter.PaymentStatus) > 0 {
		placeholders := make([]string, len(filter.PaymentStatus))
		for i, ps := range filter.PaymentStatus {
			placeholder := fmt.Sprintf(":payment_status_%d", i)
			placeholders[i] = placeholder
			values[placeholder] = &awstypes.AttributeValueMemberS{Value: string(ps)}
		}
		conditions = append(conditions, fmt.Sprintf("payment_status IN (%s)", strings.Join(placeholders, ", ")))
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.client.Table()),
		IndexName:                 aws.String("gsi1"),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  names,
		ScanIndexForward:          aws.Bool(filter.GetOrder() == types.OrderAsc),
	}
	if len(conditions) > 0 {
		input.FilterExpression = aws.String(strings.Join(conditions, " AND "))
	}
	if countOnly {
		input.Select = awstypes.SelectCount
	}

	return input
}

func (r *documentRepository) getDirect(ctx context.Context, pk, sk string) (map[string]awstypes.AttributeValue, bool, error) {
	out, err := r.client.DB().GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName:      aws.String(r.client.Table()),
		Key:            store.KeyAttributes(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to read document").
			Mark(ierr.ErrDatabase)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	return out.Item, true, nil
}

func (r *documentRepository) marshalDocument(doc *document.LedgerDocument) (map[string]awstypes.AttributeValue, error) {
	item := documentItem{
		PK:     customerPK(doc.CustomerID),
		SK:     documentSK(doc.DocumentNumber),
		GSI1PK: documentGSI1PK(doc.CustomerID),
		GSI1SK: types.FormatSortableTimestamp(doc.GeneratedAt),

		ID:             doc.ID,
		CustomerID:     doc.CustomerID,
		DocumentNumber: doc.DocumentNumber,
		DocumentType:   string(doc.DocumentType),

		CustomerName:  doc.CustomerName,
		CustomerTaxID: doc.CustomerTaxID,
		Description:   doc.Description,

		Amount:   doc.Amount.String(),
		Currency: doc.Currency,

		IssueDate:   types.FormatDate(doc.IssueDate),
		GeneratedAt: types.FormatSortableTimestamp(doc.GeneratedAt),
		GeneratedBy: generatedByItem{
			UserID:     doc.GeneratedBy.UserID,
			Username:   doc.GeneratedBy.Username,
			CustomerID: doc.GeneratedBy.CustomerID,
		},

		PaymentStatus:     string(doc.PaymentStatus),
		PaidAmount:        doc.PaidAmount.String(),
		RemainingBalance:  doc.RemainingBalance.String(),
		RelatedReceiptIDs: doc.RelatedReceiptIDs,

		LinkageKind:          string(doc.Linkage.Normalize().Kind),
		LinkedInvoiceNumbers: doc.Linkage.InvoiceNumbers,

		StorageKey: doc.StorageKey,
		StorageURL: doc.StorageURL,

		Metadata: doc.Metadata,
		Version:  doc.Version,

		Status:    string(doc.Status),
		CreatedAt: types.FormatSortableTimestamp(doc.CreatedAt),
		UpdatedAt: types.FormatSortableTimestamp(doc.UpdatedAt),
		CreatedBy: doc.CreatedBy,
		UpdatedBy: doc.UpdatedBy,
	}

	if doc.PaymentMethod != nil {
		item.PaymentMethod = string(*doc.PaymentMethod)
	}

	raw, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode document").
			WithReportableDetails(map[string]any{
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrDatabase)
	}
	return raw, nil
}

func (r *documentRepository) unmarshalDocument(raw map[string]awstypes.AttributeValue) (*document.LedgerDocument, error) {
	var item documentItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode document").
			Mark(ierr.ErrDatabase)
	}
	return item.toDomain()
}

func (i documentItem) toDomain() (*document.LedgerDocument, error) {
	amount, err := decimal.NewFromString(i.Amount)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "amount", err)
	}
	paidAmount, err := decimal.NewFromString(i.PaidAmount)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "paid_amount", err)
	}
	remaining, err := decimal.NewFromString(i.RemainingBalance)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "remaining_balance", err)
	}

	issueDate, err := types.ParseDate(i.IssueDate)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "issue_date", err)
	}
	generatedAt, err := types.ParseSortableTimestamp(i.GeneratedAt)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "generated_at", err)
	}
	createdAt, err := types.ParseSortableTimestamp(i.CreatedAt)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "created_at", err)
	}
	updatedAt, err := types.ParseSortableTimestamp(i.UpdatedAt)
	if err != nil {
		return nil, corruptDocumentErr(i.DocumentNumber, "updated_at", err)
	}

	doc := &document.LedgerDocument{
		ID:             i.ID,
		CustomerID:     i.CustomerID,
		DocumentNumber: i.DocumentNumber,
		DocumentType:   types.DocumentType(i.DocumentType),

		CustomerName:  i.CustomerName,
		CustomerTaxID: i.CustomerTaxID,
		Description:   i.Description,

		Amount:   amount,
		Currency: i.Currency,

		IssueDate:   issueDate,
		GeneratedAt: generatedAt,
		GeneratedBy: types.GeneratedBy{
			UserID:     i.GeneratedBy.UserID,
			Username:   i.GeneratedBy.Username,
			CustomerID: i.GeneratedBy.CustomerID,
		},

		PaymentStatus:     types.PaymentStatus(i.PaymentStatus),
		PaidAmount:        paidAmount,
		RemainingBalance:  remaining,
		RelatedReceiptIDs: i.RelatedReceiptIDs,

		Linkage: document.ReceiptLinkage{
			Kind:           document.LinkageKind(i.LinkageKind),
			InvoiceNumbers: i.LinkedInvoiceNumbers,
		}.Normalize(),

		StorageKey: i.StorageKey,
		StorageURL: i.StorageURL,

		Metadata: i.Metadata,
		Version:  i.Version,
	}

	doc.Status = types.Status(i.Status)
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	doc.CreatedBy = i.CreatedBy
	doc.UpdatedBy = i.UpdatedBy

	if i.PaymentMethod != "" {
		doc.PaymentMethod = lo.ToPtr(types.PaymentMethod(i.PaymentMethod))
	}

	return doc, nil
}

func corruptDocumentErr(documentNumber, field string, err error) error {
	return ierr.WithError(err).
		WithHint("Stored document is corrupt").
		WithReportableDetails(map[string]any{
			"document_number": documentNumber,
			"field":           field,
		}).
		Mark(ierr.ErrDatabase)
}
