// Package dynamodb stores notes and their links in a single DynamoDB table.
//
// Item layout:
//
//	note  PK=NOTE#<id>     SK=METADATA      GSI1PK=NOTES  GSI1SK=<modified>#<id>
//	link  PK=NOTE#<source> SK=LINK#<target> GSI1PK=LINK   GSI2PK=TARGET#<target>
//
// A link item is owned by its source note's partition, so deleting a note
// clears its outgoing links with one partition query and finds incoming
// links through GSI2.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

const (
	maxBatchSize        = 25
	maxUnprocessedTries = 5
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config names the table and its indexes.
type Config struct {
	TableName    string
	GSI1Name     string
	GSI2Name     string
	RetryBackoff time.Duration
}

// DefaultConfig returns the index names created by the deployment
// templates.
func DefaultConfig(tableName string) Config {
	return Config{
		TableName:    tableName,
		GSI1Name:     "GSI1",
		GSI2Name:     "GSI2",
		RetryBackoff: 50 * time.Millisecond,
	}
}

// NoteStore is the DynamoDB implementation of ports.NoteStore.
type NoteStore struct {
	client API
	config Config
	logger *zap.Logger
}

// NewNoteStore creates a store over client.
func NewNoteStore(client API, config Config, logger *zap.Logger) *NoteStore {
	return &NoteStore{client: client, config: config, logger: logger}
}

// List fetches notes and links in parallel and joins them.
func (s *NoteStore) List(ctx context.Context) ([]entities.Note, error) {
	g, gctx := errgroup.WithContext(ctx)

	var noteItems []ddbNote
	var linkItems []ddbLink

	g.Go(func() error {
		items, err := s.queryIndex(gctx, s.config.GSI1Name, "GSI1PK", notesGSI1, false)
		if err != nil {
			return err
		}
		return attributevalue.UnmarshalListOfMaps(items, &noteItems)
	})
	g.Go(func() error {
		items, err := s.queryIndex(gctx, s.config.GSI1Name, "GSI1PK", linksGSI1, true)
		if err != nil {
			return err
		}
		return attributevalue.UnmarshalListOfMaps(items, &linkItems)
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to list notes", zap.Error(err))
		return nil, translateError("list notes", err)
	}

	bySource := groupLinksBySource(linkItems)
	notes := make([]entities.Note, 0, len(noteItems))
	for _, item := range noteItems {
		n, err := fromNoteItem(item, bySource[item.NoteID])
		if err != nil {
			s.logger.Warn("skipping unreadable note item", zap.String("pk", item.PK), zap.Error(err))
			continue
		}
		notes = append(notes, n)
	}
	entities.SortByModifiedDesc(notes)

	s.logger.Debug("listed notes",
		zap.Int("notes", len(notes)),
		zap.Int("links", len(linkItems)))
	return notes, nil
}

// Get reads a note item and its outgoing links.
func (s *NoteStore) Get(ctx context.Context, id string) (entities.Note, error) {
	item, found, err := s.getNoteItem(ctx, id)
	if err != nil {
		return entities.Note{}, translateError("get note", err)
	}
	if !found {
		return entities.Note{}, pkgerrors.NewNotFoundError("Note")
	}

	links, err := s.outgoingLinks(ctx, id)
	if err != nil {
		return entities.Note{}, translateError("get note links", err)
	}

	n, err := fromNoteItem(item, links)
	if err != nil {
		return entities.Note{}, pkgerrors.Wrap(err, "stored note is unreadable")
	}
	return n, nil
}

// Upsert writes the note item and replaces its link items.
func (s *NoteStore) Upsert(ctx context.Context, note entities.Note) error {
	av, err := attributevalue.MarshalMap(toNoteItem(note))
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal note").WithCause(err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      av,
	}); err != nil {
		return translateError("put note", err)
	}

	existing, err := s.outgoingLinks(ctx, note.ID)
	if err != nil {
		return translateError("query existing links", err)
	}

	wanted := make(map[string]struct{}, len(note.LinkedNotes))
	var requests []types.WriteRequest
	for _, link := range toLinkItems(note) {
		wanted[link.SK] = struct{}{}
		item, err := attributevalue.MarshalMap(link)
		if err != nil {
			return pkgerrors.NewInternalError("failed to marshal link").WithCause(err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, link := range existing {
		if _, keep := wanted[link.SK]; keep {
			continue
		}
		requests = append(requests, deleteRequest(link.PK, link.SK))
	}

	if err := s.batchWrite(ctx, requests); err != nil {
		return translateError("write links", err)
	}

	s.logger.Debug("upserted note",
		zap.String("note_id", note.ID),
		zap.Int("links", len(note.LinkedNotes)),
		zap.Int("previous_links", len(existing)))
	return nil
}

// Delete removes the note partition and every link item targeting it. The
// two steps are not atomic; readers tolerate a link left dangling by a
// failure in between.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	_, found, err := s.getNoteItem(ctx, id)
	if err != nil {
		return translateError("get note", err)
	}
	if !found {
		return pkgerrors.NewNotFoundError("Note")
	}

	keyExpr := expression.Key("PK").Equal(expression.Value(notePK(id)))
	own, err := s.query(ctx, "", keyExpr, true)
	if err != nil {
		return translateError("query note partition", err)
	}
	incoming, err := s.queryIndex(ctx, s.config.GSI2Name, "GSI2PK", targetPrefix+id, true)
	if err != nil {
		return translateError("query incoming links", err)
	}

	requests := make([]types.WriteRequest, 0, len(own)+len(incoming))
	seen := make(map[string]struct{}, len(own)+len(incoming))
	for _, item := range append(own, incoming...) {
		pk, sk := stringAttr(item, "PK"), stringAttr(item, "SK")
		if _, dup := seen[pk+"|"+sk]; dup {
			continue
		}
		seen[pk+"|"+sk] = struct{}{}
		requests = append(requests, deleteRequest(pk, sk))
	}

	if err := s.batchWrite(ctx, requests); err != nil {
		return translateError("delete note items", err)
	}

	s.logger.Debug("deleted note",
		zap.String("note_id", id),
		zap.Int("items", len(requests)),
		zap.Int("incoming_links", len(incoming)))
	return nil
}

// Ping checks that the table exists and is reachable.
func (s *NoteStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.config.TableName),
	}); err != nil {
		return translateError("describe table", err)
	}
	return nil
}

func (s *NoteStore) getNoteItem(ctx context.Context, id string) (ddbNote, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: notePK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return ddbNote{}, false, err
	}
	if out.Item == nil {
		return ddbNote{}, false, nil
	}
	var item ddbNote
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return ddbNote{}, false, fmt.Errorf("unmarshal note item: %w", err)
	}
	return item, true, nil
}

func (s *NoteStore) outgoingLinks(ctx context.Context, id string) ([]ddbLink, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(notePK(id))).
		And(expression.Key("SK").BeginsWith(linkPrefix))
	items, err := s.query(ctx, "", keyExpr, true)
	if err != nil {
		return nil, err
	}
	var links []ddbLink
	if err := attributevalue.UnmarshalListOfMaps(items, &links); err != nil {
		return nil, fmt.Errorf("unmarshal link items: %w", err)
	}
	return links, nil
}

func (s *NoteStore) queryIndex(ctx context.Context, index, attr, value string, ascending bool) ([]map[string]types.AttributeValue, error) {
	return s.query(ctx, index, expression.Key(attr).Equal(expression.Value(value)), ascending)
}

// query runs a paginated query against the table or one of its indexes.
func (s *NoteStore) query(ctx context.Context, index string, keyExpr expression.KeyConditionBuilder, ascending bool) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(ascending),
	}
	if index != "" {
		input.IndexName = aws.String(index)
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// batchWrite sends requests in chunks of 25 and resubmits unprocessed
// items with a linear backoff.
func (s *NoteStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for i := 0; i < len(requests); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(requests) {
			end = len(requests)
		}

		pending := map[string][]types.WriteRequest{s.config.TableName: requests[i:end]}
		for attempt := 0; len(pending[s.config.TableName]) > 0; attempt++ {
			if attempt >= maxUnprocessedTries {
				return fmt.Errorf("%d write requests left unprocessed", len(pending[s.config.TableName]))
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt) * s.config.RetryBackoff):
				}
			}

			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func deleteRequest(pk, sk string) types.WriteRequest {
	return types.WriteRequest{DeleteRequest: &types.DeleteRequest{
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	}}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// translateError maps SDK failures onto the application error kinds.
// Anything the service reports about the request itself is internal; every
// other failure means the store is unavailable.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.GetAppError(err) != nil {
		return err
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ValidationException", "SerializationException":
			return pkgerrors.NewInternalError(fmt.Sprintf("dynamodb rejected %s", op)).
				WithCode(ae.ErrorCode()).
				WithCause(err)
		}
		return pkgerrors.NewUnavailableError("note store", err).
			WithCode(ae.ErrorCode()).
			WithDetails(map[string]any{"operation": op})
	}
	return pkgerrors.NewUnavailableError("note store", err).
		WithDetails(map[string]any{"operation": op})
}
