package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awstypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	ierr "github.com/numera/numera/internal/errors"
)

// Item attribute names shared by every record in the ledger table
const (
	AttrPK      = "pk"
	AttrSK      = "sk"
	AttrVersion = "version"
)

type itemKey struct {
	PK string
	SK string
}

type readState struct {
	version int64
	exists  bool
	item    map[string]awstypes.AttributeValue
}

type stagedPut struct {
	key  itemKey
	item map[string]awstypes.AttributeValue
}

// Tx stages reads and writes for one optimistic transaction. Every read
// records the version it observed; commit turns the staged writes into a
// single TransactWriteItems call where each touched item is conditioned on
// the version seen during the transaction. Reads that were never rewritten
// become condition checks, so the closure's decisions stay valid at commit
// time.
//
// Reads are repeatable: the first observation of a key is cached and
// returned for every later Get of that key, so commit conditions always
// match the data the closure computed with. Reads never observe writes
// staged in the same transaction. Only the owning client commits a Tx.
type Tx struct {
	client *Client

	mu        sync.Mutex
	reads     map[itemKey]readState
	writes    []*stagedPut
	writeKeys map[itemKey]int
	done      bool
}

func newTx(c *Client) *Tx {
	return &Tx{
		client:    c,
		reads:     make(map[itemKey]readState),
		writeKeys: make(map[itemKey]int),
	}
}

// Get reads the committed item at (pk, sk) with strong consistency and
// records the observed version. Re-reading a key returns the first
// observation unchanged. The second return value reports whether the item
// exists.
func (t *Tx) Get(ctx context.Context, pk, sk string) (map[string]awstypes.AttributeValue, bool, error) {
	key := itemKey{PK: pk, SK: sk}

	t.mu.Lock()
	if state, ok := t.reads[key]; ok {
		t.mu.Unlock()
		return state.item, state.exists, nil
	}
	t.mu.Unlock()

	out, err := t.client.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.client.table),
		Key:            KeyAttributes(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to read from the ledger store").
			Mark(ierr.ErrDatabase)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// First observation wins even if another goroutine read the key while
	// the lock was released.
	if state, ok := t.reads[key]; ok {
		return state.item, state.exists, nil
	}

	if len(out.Item) == 0 {
		t.reads[key] = readState{exists: false}
		return nil, false, nil
	}

	version, err := itemVersion(out.Item)
	if err != nil {
		return nil, false, err
	}
	t.reads[key] = readState{version: version, exists: true, item: out.Item}
	return out.Item, true, nil
}

// Put stages a write of item at (pk, sk). The commit assigns the next
// version and conditions the write on the version observed by Get, or on
// the item not existing when it was never read or absent at read time.
// Staging a second write to the same key replaces the first.
func (t *Tx) Put(pk, sk string, item map[string]awstypes.AttributeValue) {
	key := itemKey{PK: pk, SK: sk}

	t.mu.Lock()
	defer t.mu.Unlock()

	staged := &stagedPut{key: key, item: item}
	if idx, ok := t.writeKeys[key]; ok {
		t.writes[idx] = staged
		return
	}
	t.writeKeys[key] = len(t.writes)
	t.writes = append(t.writes, staged)
}

func (t *Tx) commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true

	if len(t.writes) == 0 {
		// Read only transactions have nothing to prove at commit time; the
		// caller saw a consistent snapshot per item and wrote nothing based
		// on it.
		return nil
	}

	items := make([]awstypes.TransactWriteItem, 0, len(t.writes)+len(t.reads))

	for _, w := range t.writes {
		item := make(map[string]awstypes.AttributeValue, len(w.item)+3)
		for k, v := range w.item {
			item[k] = v
		}
		item[AttrPK] = &awstypes.AttributeValueMemberS{Value: w.key.PK}
		item[AttrSK] = &awstypes.AttributeValueMemberS{Value: w.key.SK}

		put := &awstypes.Put{
			TableName: aws.String(t.client.table),
			Item:      item,
		}

		state, seen := t.reads[w.key]
		if seen && state.exists {
			item[AttrVersion] = numberAttr(state.version + 1)
			put.ConditionExpression = aws.String("version = :expected_version")
			put.ExpressionAttributeValues = map[string]awstypes.AttributeValue{
				":expected_version": numberAttr(state.version),
			}
		} else {
			item[AttrVersion] = numberAttr(1)
			put.ConditionExpression = aws.String("attribute_not_exists(pk)")
		}

		items = append(items, awstypes.TransactWriteItem{Put: put})
	}

	for key, state := range t.reads {
		if _, written := t.writeKeys[key]; written {
			continue
		}

		check := &awstypes.ConditionCheck{
			TableName: aws.String(t.client.table),
			Key:       KeyAttributes(key.PK, key.SK),
		}
		if state.exists {
			check.ConditionExpression = aws.String("version = :expected_version")
			check.ExpressionAttributeValues = map[string]awstypes.AttributeValue{
				":expected_version": numberAttr(state.version),
			}
		} else {
			check.ConditionExpression = aws.String("attribute_not_exists(pk)")
		}

		items = append(items, awstypes.TransactWriteItem{ConditionCheck: check})
	}

	_, err := t.client.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if isTransactionConflict(err) {
			return ierr.WithError(err).
				WithHint("The ledger changed underneath this operation").
				Mark(ierr.ErrVersionConflict)
		}
		return ierr.WithError(err).
			WithHint("Failed to commit the ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// KeyAttributes builds the primary key attribute map for (pk, sk)
func KeyAttributes(pk, sk string) map[string]awstypes.AttributeValue {
	return map[string]awstypes.AttributeValue{
		AttrPK: &awstypes.AttributeValueMemberS{Value: pk},
		AttrSK: &awstypes.AttributeValueMemberS{Value: sk},
	}
}

func numberAttr(v int64) awstypes.AttributeValue {
	return &awstypes.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func itemVersion(item map[string]awstypes.AttributeValue) (int64, error) {
	av, ok := item[AttrVersion]
	if !ok {
		return 0, nil
	}
	n, ok := av.(*awstypes.AttributeValueMemberN)
	if !ok {
		return 0, ierr.NewError("ledger item carries a non numeric version").
			Mark(ierr.ErrDatabase)
	}
	version, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to parse ledger item version").
			Mark(ierr.ErrDatabase)
	}
	return version, nil
}

// isTransactionConflict reports whether the commit failed because another
// writer touched one of the transaction's items
func isTransactionConflict(err error) bool {
	var canceled *awstypes.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				return true
			}
		}
		return false
	}

	var conflict *awstypes.TransactionConflictException
	if errors.As(err, &conflict) {
		return true
	}

	var condFailed *awstypes.ConditionalCheckFailedException
	return errors.As(err, &condFailed)
}
