package dynamodb

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/qtrack/internal/domain/repository"
)

// fakeTable хранит items по PK/SK и отдает Query страницами по pageSize.
type fakeTable struct {
	items     map[string]map[string]map[string]types.AttributeValue
	pageSize  int
	throttles int
	queries   int
	created   int
}

func newFakeTable(pageSize int) *fakeTable {
	return &fakeTable{items: make(map[string]map[string]map[string]types.AttributeValue), pageSize: pageSize}
}

func keyParts(k map[string]types.AttributeValue) (string, string) {
	return k[attrPK].(*types.AttributeValueMemberS).Value, k[attrSK].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) throttle() error {
	if f.throttles > 0 {
		f.throttles--
		return &types.ProvisionedThroughputExceededException{}
	}
	return nil
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := f.throttle(); err != nil {
		return nil, err
	}
	pk, sk := keyParts(in.Key)
	return &dynamodb.GetItemOutput{Item: f.items[pk][sk]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := f.throttle(); err != nil {
		return nil, err
	}
	pk, sk := keyParts(in.Item)
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	f.items[pk][sk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk, sk := keyParts(in.Key)
	old := f.items[pk][sk]
	delete(f.items[pk], sk)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeTable) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries++
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value

	sks := make([]string, 0, len(f.items[pk]))
	for sk := range f.items[pk] {
		sks = append(sks, sk)
	}
	sort.Strings(sks)

	start := 0
	if in.ExclusiveStartKey != nil {
		_, last := keyParts(in.ExclusiveStartKey)
		start = sort.SearchStrings(sks, last) + 1
	}

	end := min(start+f.pageSize, len(sks))
	out := &dynamodb.QueryOutput{}
	for _, sk := range sks[start:end] {
		out.Items = append(out.Items, f.items[pk][sk])
	}
	if end < len(sks) {
		out.LastEvaluatedKey = key(strings.TrimPrefix(pk, "COLLECTION#"), strings.TrimPrefix(sks[end-1], "ID#"))
	}
	return out, nil
}

func (f *fakeTable) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created++
	if f.created > 1 {
		return nil, &types.ResourceInUseException{}
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestStore(table *fakeTable) *Store {
	s := newStore(table, Config{TableName: "qtrack-records"})
	s.delay = 0
	return s
}

func TestStoreCRUD(t *testing.T) {
	table := newFakeTable(10)
	store := newTestStore(table)
	ctx := context.Background()

	if _, err := store.Get(ctx, repository.CollectionTickets, "t-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, repository.CollectionTickets, "t-1", []byte(`{"id":"t-1"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := store.Get(ctx, repository.CollectionTickets, "t-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != `{"id":"t-1"}` {
		t.Fatalf("unexpected data %s", data)
	}

	if err := store.Delete(ctx, repository.CollectionTickets, "t-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, repository.CollectionTickets, "t-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreScanPaginatesAndIsolatesCollections(t *testing.T) {
	table := newFakeTable(2)
	store := newTestStore(table)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "e", "b", "d"} {
		if err := store.Put(ctx, repository.CollectionUsers, id, []byte(id)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	_ = store.Put(ctx, repository.CollectionTickets, "x", []byte("x"))

	rows, err := store.Scan(ctx, repository.CollectionUsers)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, string(r))
	}
	if strings.Join(got, ",") != "a,b,c,d,e" {
		t.Fatalf("unexpected scan result %v", got)
	}
	if table.queries != 3 {
		t.Fatalf("expected 3 pages, got %d", table.queries)
	}
}

func TestStoreRetriesThrottling(t *testing.T) {
	table := newFakeTable(10)
	table.throttles = 2
	store := newTestStore(table)

	if err := store.Put(context.Background(), repository.CollectionTickets, "t-1", []byte("{}")); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	table.throttles = maxAttempts
	if _, err := store.Get(context.Background(), repository.CollectionTickets, "t-1"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestEnsureTableIgnoresExisting(t *testing.T) {
	table := newFakeTable(10)
	store := newTestStore(table)

	for i := 0; i < 2; i++ {
		if err := store.EnsureTable(context.Background()); err != nil {
			t.Fatalf("EnsureTable() call %d error = %v", i, err)
		}
	}
}
