package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blockpad/internal/domain"
)

// MongoStore implements domain.BlockStore on a MongoDB collection,
// one document per block. Reorder and replace run inside a session
// transaction for the all-or-nothing guarantee, which requires the
// server to be a replica set (standalone mongod does not support
// multi-document transactions).
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// blockDoc is the persisted shape of a block.
type blockDoc struct {
	ID      string  `bson:"_id"`
	Type    string  `bson:"type"`
	Content string  `bson:"content"`
	Order   int     `bson:"order"`
	Style   *string `bson:"style,omitempty"`
	Width   *int    `bson:"width,omitempty"`
	Height  *int    `bson:"height,omitempty"`
}

// NewMongoStore connects to the given URI and uses the blocks
// collection of the named database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection("blocks"),
	}, nil
}

// Close disconnects from the server.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ListBlocks(ctx context.Context) ([]domain.Block, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer cur.Close(ctx)

	var docs []blockDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	blocks := make([]domain.Block, len(docs))
	for i, d := range docs {
		blocks[i] = d.toBlock()
	}
	return blocks, nil
}

func (s *MongoStore) CreateBlock(ctx context.Context, in domain.CreateBlockInput) (*domain.Block, error) {
	b, err := newBlockFromInput(in)
	if err != nil {
		return nil, err
	}

	// order = current max + 1, 0 for an empty collection
	var top blockDoc
	err = s.coll.FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}})).Decode(&top)
	switch {
	case err == nil:
		b.Order = top.Order + 1
	case errors.Is(err, mongo.ErrNoDocuments):
		b.Order = 0
	default:
		return nil, fmt.Errorf("next order: %w", err)
	}

	if _, err := s.coll.InsertOne(ctx, docFromBlock(*b)); err != nil {
		return nil, fmt.Errorf("insert block: %w", err)
	}
	return b, nil
}

func (s *MongoStore) UpdateBlock(ctx context.Context, id string, patch domain.BlockPatch) (*domain.Block, error) {
	var cur blockDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&cur)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get block %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}

	updated, changed := patchedBlock(cur.toBlock(), patch)
	if !changed {
		return nil, fmt.Errorf("update block %s: no applicable field: %w", id, domain.ErrInvalidInput)
	}
	if updated.Type == domain.BlockTypeText && !updated.Style.Valid() {
		return nil, fmt.Errorf("update block %s: bad style %q: %w", id, updated.Style, domain.ErrInvalidInput)
	}

	doc := docFromBlock(updated)
	set := bson.D{
		{Key: "content", Value: doc.Content},
		{Key: "style", Value: doc.Style},
		{Key: "width", Value: doc.Width},
		{Key: "height", Value: doc.Height},
	}
	if _, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteBlock(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete block %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) ReorderBlocks(ctx context.Context, orderedIDs []string) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		for i, id := range orderedIDs {
			_, err := s.coll.UpdateOne(ctx,
				bson.D{{Key: "_id", Value: id}},
				bson.D{{Key: "$set", Value: bson.D{{Key: "order", Value: i}}}},
			)
			if err != nil {
				return fmt.Errorf("reorder block %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *MongoStore) ReplaceBlocks(ctx context.Context, blocks []domain.Block) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("clear blocks: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}
		docs := make([]any, len(blocks))
		for i, b := range blocks {
			docs[i] = docFromBlock(b)
		}
		if _, err := s.coll.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert blocks: %w", err)
		}
		return nil
	})
}

func (s *MongoStore) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (d blockDoc) toBlock() domain.Block {
	b := domain.Block{
		ID:      d.ID,
		Type:    domain.BlockType(d.Type),
		Order:   d.Order,
		Content: d.Content,
		Width:   d.Width,
		Height:  d.Height,
	}
	if d.Style != nil {
		b.Style = domain.TextStyle(*d.Style)
	}
	return b
}

func docFromBlock(b domain.Block) blockDoc {
	d := blockDoc{
		ID:      b.ID,
		Type:    string(b.Type),
		Content: b.Content,
		Order:   b.Order,
		Width:   b.Width,
		Height:  b.Height,
	}
	if b.Type == domain.BlockTypeText && b.Style != "" {
		style := string(b.Style)
		d.Style = &style
	}
	return d
}
