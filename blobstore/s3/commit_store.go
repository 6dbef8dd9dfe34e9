package s3

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/recgo/blobstore"
)

// ErrConcurrentModification is returned when a concurrent writer committed
// the same snapshot version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the interface for DynamoDB operations used by CommitStore.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CommitStore is a versioning blobstore.BlobStore: snapshot bytes live in an
// object store (typically S3) under versioned keys, and DynamoDB conditional
// writes provide the atomic "current version" pointer that S3 lacks. This
// lets multiple engine processes share one snapshot location without a
// last-writer-wins race on the pointer.
//
// Table schema:
//   - Partition key: blob_uri (string) - baseURI + "/" + blob name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name recgo-commits \
//	  --attribute-definitions AttributeName=blob_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=blob_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	objects   blobstore.BlobStore
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a new versioned commit store.
// baseURI should identify the object location (e.g. "s3://bucket/prefix").
func NewCommitStore(objects blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		objects:   objects,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func (s *CommitStore) blobURI(name string) string {
	return s.baseURI + "/" + name
}

// Get reads the latest committed version of a blob.
func (s *CommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	version, objectKey, err := s.latestVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return s.objects.Get(ctx, objectKey)
}

// Put writes the blob under a fresh versioned object key, then commits the
// new version with a DynamoDB conditional write. A lost race returns
// ErrConcurrentModification and leaves the previous version current.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	current, _, err := s.latestVersion(ctx, name)
	if err != nil {
		return err
	}
	next := current + 1
	// The suffix keeps racing writers from overwriting each other's object
	// before the conditional write decides the race.
	objectKey := fmt.Sprintf("%s.v%020d-%s", name, next, randomSuffix())

	if err := s.objects.Put(ctx, objectKey, data); err != nil {
		return err
	}

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"blob_uri":   &ddbtypes.AttributeValueMemberS{Value: s.blobURI(name)},
			"version":    &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"object_key": &ddbtypes.AttributeValueMemberS{Value: objectKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Clean up the orphaned object; the competing commit won.
			_ = s.objects.Delete(ctx, objectKey)
			return ErrConcurrentModification
		}
		return err
	}
	return nil
}

// Delete removes the latest committed version.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	version, objectKey, err := s.latestVersion(ctx, name)
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}

	_, err = s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"blob_uri": &ddbtypes.AttributeValueMemberS{Value: s.blobURI(name)},
			"version":  &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
		},
	})
	if err != nil {
		return err
	}
	return s.objects.Delete(ctx, objectKey)
}

// List delegates to the underlying object store.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.objects.List(ctx, prefix)
}

func randomSuffix() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// latestVersion queries DynamoDB for the latest committed version of name.
// Returns version 0 when no version has been committed yet.
func (s *CommitStore) latestVersion(ctx context.Context, name string) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("blob_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.blobURI(name)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	keyAttr, ok := item["object_key"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid object_key attribute in DynamoDB")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version number: %w", err)
	}
	return version, keyAttr.Value, nil
}
