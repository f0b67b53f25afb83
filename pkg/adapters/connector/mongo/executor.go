// Package mongo implements the proxied executor for MongoDB backends.
// Operations are expressed as collection plus filter/document maps rather
// than SQL text.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// Config holds MongoDB connection settings from decrypted connector config.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// ConfigFromMap parses decrypted config and credentials into a Config.
func ConfigFromMap(config, credentials map[string]any) (*Config, error) {
	host, err := connector.StringFromConfig(config, "host")
	if err != nil {
		return nil, err
	}
	database, err := connector.StringFromConfig(config, "database")
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:     host,
		Port:     connector.IntFromConfig(config, "port", 27017),
		Database: database,
		Username: connector.OptionalString(credentials, "username", ""),
		Password: connector.OptionalString(credentials, "password", ""),
	}, nil
}

// URI builds the mongodb connection string.
func (c *Config) URI() string {
	if c.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d/%s?authSource=admin",
			url.QueryEscape(c.Username), url.QueryEscape(c.Password), c.Host, c.Port, c.Database)
	}
	return fmt.Sprintf("mongodb://%s:%d/%s", c.Host, c.Port, c.Database)
}

// Executor runs document operations against one MongoDB backend.
type Executor struct {
	cfg *Config
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates a MongoDB executor from decrypted config and
// credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config, credentials)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	if op.Collection == "" {
		return nil, fmt.Errorf("collection is required for mongodb operations")
	}

	opts := options.Client().
		ApplyURI(e.cfg.URI()).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	coll := client.Database(e.cfg.Database).Collection(op.Collection)
	filter := toBSON(op.Filter)

	switch op.Kind {
	case "find", "":
		return e.find(ctx, coll, filter, op.Limit)
	case "count":
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("count failed: %w", err)
		}
		return &connector.Result{Status: "success", Data: map[string]any{"count": n}}, nil
	case "insert":
		if op.Document == nil {
			return nil, fmt.Errorf("document is required for insert")
		}
		res, err := coll.InsertOne(ctx, toBSON(op.Document))
		if err != nil {
			return nil, fmt.Errorf("insert failed: %w", err)
		}
		return &connector.Result{
			Status:       "success",
			RowsAffected: 1,
			Data:         map[string]any{"inserted_id": fmt.Sprintf("%v", res.InsertedID)},
		}, nil
	case "update":
		if op.Document == nil {
			return nil, fmt.Errorf("document is required for update")
		}
		res, err := coll.UpdateMany(ctx, filter, bson.M{"$set": toBSON(op.Document)})
		if err != nil {
			return nil, fmt.Errorf("update failed: %w", err)
		}
		return &connector.Result{Status: "success", RowsAffected: res.ModifiedCount}, nil
	case "delete":
		res, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("delete failed: %w", err)
		}
		return &connector.Result{Status: "success", RowsAffected: res.DeletedCount}, nil
	default:
		return nil, fmt.Errorf("unsupported mongodb operation %q", op.Kind)
	}
}

func (e *Executor) find(ctx context.Context, coll *mongo.Collection, filter bson.M, limit int) (*connector.Result, error) {
	findOpts := options.Find().SetLimit(int64(connector.ClampLimit(limit)))

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	result := &connector.Result{Status: "success", Rows: make([]map[string]any, 0)}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		result.Rows = append(result.Rows, map[string]any(doc))
		result.RowCount++
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating cursor: %w", err)
	}
	return result, nil
}

func toBSON(m map[string]any) bson.M {
	if m == nil {
		return bson.M{}
	}
	return bson.M(m)
}
