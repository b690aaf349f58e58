package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/molvis/molscene/blobstore"
)

// LatestPointer is the virtual blob name that resolves to the most recently
// committed snapshot name.
const LatestPointer = "LATEST"

// ErrConcurrentModification is returned when another writer committed a
// snapshot pointer between read and write.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the subset of the DynamoDB API used by DDBPointerStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBPointerStore wraps an S3 store with a DynamoDB table that tracks the
// latest committed snapshot. S3 alone cannot swap the latest-snapshot
// pointer atomically; a conditional DynamoDB write can, so concurrent
// writers detect each other instead of silently losing a commit.
//
// Table schema:
//   - Partition key: scene_uri (string), the bucket/prefix of the scene
//   - Sort key: version (number), monotonically increasing
//
// Reading or writing the blob named LatestPointer goes through DynamoDB;
// every other name passes through to S3 unchanged.
type DDBPointerStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	sceneURI  string
}

// NewDDBPointerStore creates an S3+DynamoDB pointer store. sceneURI should
// be an "s3://bucket/prefix" style identifier used as the partition key.
func NewDDBPointerStore(s3Store *Store, ddbClient DDBClient, tableName, sceneURI string) *DDBPointerStore {
	return &DDBPointerStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		sceneURI:  sceneURI,
	}
}

func (s *DDBPointerStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == LatestPointer {
		version, snapshot, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return &pointerBlob{content: []byte(snapshot)}, nil
	}
	return s.s3Store.Open(ctx, name)
}

func (s *DDBPointerStore) Put(ctx context.Context, name string, data []byte) error {
	if name == LatestPointer {
		return s.commit(ctx, string(data))
	}
	return s.s3Store.Put(ctx, name, data)
}

func (s *DDBPointerStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.s3Store.Create(ctx, name)
}

func (s *DDBPointerStore) Delete(ctx context.Context, name string) error {
	return s.s3Store.Delete(ctx, name)
}

func (s *DDBPointerStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.s3Store.List(ctx, prefix)
}

// latestVersion queries DynamoDB for the newest committed snapshot name.
func (s *DDBPointerStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("scene_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.sceneURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query pointer table: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in pointer table")
	}
	snapshotAttr, ok := item["snapshot"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid snapshot attribute in pointer table")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}
	return version, snapshotAttr.Value, nil
}

// commit writes the next pointer version with a conditional put, failing
// with ErrConcurrentModification if another writer got there first.
func (s *DDBPointerStore) commit(ctx context.Context, snapshot string) error {
	current, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}

	next := current + 1

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"scene_uri": &types.AttributeValueMemberS{Value: s.sceneURI},
			"version":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next)},
			"snapshot":  &types.AttributeValueMemberS{Value: snapshot},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit snapshot pointer: %w", err)
	}
	return nil
}

// pointerBlob serves the resolved pointer content from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error {
	return nil
}

func (b *pointerBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var _ blobstore.Store = (*DDBPointerStore)(nil)
