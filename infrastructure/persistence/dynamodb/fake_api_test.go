package dynamodb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is a small in-memory table that understands the key conditions
// the store builds: one equality, optionally followed by begins_with.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// unprocessedOnce makes the first BatchWriteItem call hand back its
	// last request as unprocessed.
	unprocessedOnce bool
	batchCalls      int
	err             error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, "PK") + "|" + stringAttr(item, "SK")
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	eqAttr := in.ExpressionAttributeNames["#0"]
	eqVal := in.ExpressionAttributeValues[":0"].(*types.AttributeValueMemberS).Value
	prefixAttr, prefix := "", ""
	if name, ok := in.ExpressionAttributeNames["#1"]; ok {
		prefixAttr = name
		prefix = in.ExpressionAttributeValues[":1"].(*types.AttributeValueMemberS).Value
	}

	sortAttr := "SK"
	if in.IndexName != nil {
		sortAttr = *in.IndexName + "SK"
	}

	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if stringAttr(item, eqAttr) != eqVal {
			continue
		}
		if prefixAttr != "" && !strings.HasPrefix(stringAttr(item, prefixAttr), prefix) {
			continue
		}
		out = append(out, item)
	}

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(out, func(i, j int) bool {
		a, b := stringAttr(out[i], sortAttr), stringAttr(out[j], sortAttr)
		if forward {
			return a < b
		}
		return a > b
	})
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batchCalls++

	unprocessed := map[string][]types.WriteRequest{}
	for table, reqs := range in.RequestItems {
		if f.unprocessedOnce && len(reqs) > 0 {
			f.unprocessedOnce = false
			unprocessed[table] = reqs[len(reqs)-1:]
			reqs = reqs[:len(reqs)-1]
		}
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				f.items[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
			case r.DeleteRequest != nil:
				delete(f.items, itemKey(r.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil
}

func (f *fakeAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{}, nil
}
