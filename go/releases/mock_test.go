package releases

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDB is an in-memory DynamoDB mock for unit tests.
type mockDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // key: "pk\x00sk"
	table string
}

func newMockDB() *mockDB {
	return &mockDB{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(pk, sk string) string { return pk + "\x00" + sk }

func strVal(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *mockDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.TableName != nil {
		m.table = *in.TableName
	}
	cp := make(map[string]types.AttributeValue, len(in.Item))
	for k, v := range in.Item {
		cp[k] = v
	}
	m.items[itemKey(strVal(in.Item["pk"]), strVal(in.Item["sk"]))] = cp
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDB) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkVal := strVal(in.ExpressionAttributeValues[":pk"])
	prefixVal := strVal(in.ExpressionAttributeValues[":prefix"])

	var matched []map[string]types.AttributeValue
	for _, item := range m.items {
		if strVal(item["pk"]) != pkVal || !strings.HasPrefix(strVal(item["sk"]), prefixVal) {
			continue
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := strVal(matched[i]["sk"]), strVal(matched[j]["sk"])
		if in.ScanIndexForward != nil && !*in.ScanIndexForward {
			return a > b
		}
		return a < b
	})

	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: matched}, nil
}

// setup installs a fresh mock and a deterministic clock.
func setup() (*mockDB, func()) {
	db := newMockDB()
	SetClient(db)

	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time {
		t = t.Add(time.Second)
		return t
	}
	return db, func() {
		SetClient(nil)
		now = time.Now
	}
}
