// Package releases keeps a history of published builds in DynamoDB.
package releases

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/xid"
)

// TimeFormat is fixed-width so sort keys order chronologically.
const TimeFormat = "2006-01-02T15:04:05.000Z"

var now = time.Now

type Release struct {
	PK        string `dynamodbav:"pk" json:"-"`
	SK        string `dynamodbav:"sk" json:"-"`
	ReleaseID string `dynamodbav:"releaseId" json:"release_id"`
	Site      string `dynamodbav:"site" json:"site"`
	Version   string `dynamodbav:"version" json:"version"`
	Bucket    string `dynamodbav:"bucket" json:"bucket"`
	Prefix    string `dynamodbav:"prefix,omitempty" json:"prefix,omitempty"`
	Files     int    `dynamodbav:"files" json:"files"`
	CreatedAt string `dynamodbav:"createdAt" json:"created_at"`
}

// Store reads and writes releases in one table.
type Store struct {
	Table string
}

// Record stores r as the newest release of r.Site.
func (s Store) Record(ctx context.Context, r Release) (*Release, error) {
	c, err := client()
	if err != nil {
		return nil, err
	}

	r.ReleaseID = xid.New().String()
	r.CreatedAt = now().UTC().Format(TimeFormat)
	r.PK = SitePK(r.Site)
	r.SK = ReleaseSK(r.CreatedAt, r.ReleaseID)

	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return nil, fmt.Errorf("marshal release: %w", err)
	}
	_, err = c.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("put release: %w", err)
	}
	return &r, nil
}

// List returns up to limit releases of site, newest first. A limit of zero
// returns all of them.
func (s Store) List(ctx context.Context, site string, limit int) ([]Release, error) {
	c, err := client()
	if err != nil {
		return nil, err
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.Table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: SitePK(site)},
			":prefix": &types.AttributeValueMemberS{Value: ReleasePrefix},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	out, err := c.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}

	var releases []Release
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &releases); err != nil {
		return nil, fmt.Errorf("unmarshal releases: %w", err)
	}
	return releases, nil
}

// Latest returns the newest release of site, or nil when there is none.
func (s Store) Latest(ctx context.Context, site string) (*Release, error) {
	list, err := s.List(ctx, site, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}
