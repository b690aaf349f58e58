package s3

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molvis/molscene/blobstore"
)

// mockDDBClient is an in-memory DynamoDB stand-in.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := params.Item["scene_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := uri + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["scene_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}

	// Descending by version, matching ScanIndexForward=false.
	for i := 0; i < len(items)-1; i++ {
		for j := i + 1; j < len(items); j++ {
			vi := items[i]["version"].(*types.AttributeValueMemberN).Value
			vj := items[j]["version"].(*types.AttributeValueMemberN).Value
			if vi < vj {
				items[i], items[j] = items[j], items[i]
			}
		}
	}

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestPointerStore(ddb *mockDDBClient, sceneURI string) *DDBPointerStore {
	// Only pointer operations are exercised here, so no S3 backend is needed.
	return NewDDBPointerStore(nil, ddb, "molscene-snapshots", sceneURI)
}

func readPointer(t *testing.T, store *DDBPointerStore) string {
	t.Helper()
	blob, err := store.Open(context.Background(), LatestPointer)
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, blob.Size())
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestDDBPointerStoreFirstCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestPointerStore(newMockDDBClient(), "s3://bucket/scene/")

	require.NoError(t, store.Put(ctx, LatestPointer, []byte("snapshot-00001.msc")))
	assert.Equal(t, "snapshot-00001.msc", readPointer(t, store))
}

func TestDDBPointerStoreLatestWins(t *testing.T) {
	ctx := context.Background()
	store := newTestPointerStore(newMockDDBClient(), "s3://bucket/scene/")

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Put(ctx, LatestPointer, []byte(fmt.Sprintf("snapshot-%05d.msc", i))))
	}
	assert.Equal(t, "snapshot-00003.msc", readPointer(t, store))
}

func TestDDBPointerStoreConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestPointerStore(newMockDDBClient(), "s3://bucket/scene/")

	require.NoError(t, store.Put(ctx, LatestPointer, []byte("snapshot-00001.msc")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, LatestPointer, []byte(fmt.Sprintf("snapshot-%05d.msc", id+2)))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case ErrConcurrentModification:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	assert.Greater(t, successes, 0, "at least one writer should succeed")
}

func TestDDBPointerStoreNotFoundBeforeCommit(t *testing.T) {
	store := newTestPointerStore(newMockDDBClient(), "s3://bucket/scene/")

	_, err := store.Open(context.Background(), LatestPointer)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBPointerStoreIsolatedScenes(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	store1 := newTestPointerStore(ddb, "s3://bucket-a/scene/")
	store2 := newTestPointerStore(ddb, "s3://bucket-b/scene/")

	require.NoError(t, store1.Put(ctx, LatestPointer, []byte("snapshot-a.msc")))
	require.NoError(t, store2.Put(ctx, LatestPointer, []byte("snapshot-b.msc")))

	assert.Equal(t, "snapshot-a.msc", readPointer(t, store1))
	assert.Equal(t, "snapshot-b.msc", readPointer(t, store2))
}
