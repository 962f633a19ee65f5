package auditlog

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	auditLogCollection    = "audit_logs"
	defaultTimestampField = "timestamp"
)

// MongoStore keeps audit records in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, cfg config.MongoDBConfig) (*MongoStore, error) {
	opts := options.Client().ApplyURI(MongoURI(cfg))
	if cfg.CAPem != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.CAPem)) {
			return nil, errors.New("mongodb ca_pem contains no certificate")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12})
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb, err: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb, err: %w", err)
	}

	store := &MongoStore{client: client, db: client.Database(cfg.Database)}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

// MongoURI builds the connection string from the config fields.
func MongoURI(cfg config.MongoDBConfig) string {
	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(cfg.Host, cfg.Port)}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password.Value())
	}
	return u.String()
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(auditLogCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: defaultTimestampField, Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: defaultTimestampField, Value: -1}}},
		{Keys: bson.D{{Key: "on_group_id", Value: 1}, {Key: defaultTimestampField, Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create audit log indexes, err: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Log(ctx context.Context, log *domain.AuditLog) error {
	if log == nil {
		return errors.New("nil audit log")
	}
	if log.ID.IsZero() {
		log.ID = bson.NewObjectID()
	}
	if log.Timestamp == 0 {
		log.Timestamp = time.Now().UnixMilli()
	}
	res, err := s.db.Collection(auditLogCollection).InsertOne(ctx, log)
	if err != nil {
		return fmt.Errorf("create audit log, err: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		log.ID = oid
	}
	return nil
}

// QueryAuditLogs returns matching records, newest first.
func (s *MongoStore) QueryAuditLogs(ctx context.Context, opt *domain.QueryAuditLogOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}

	filter := bson.M{}
	if len(opt.ActorIDs) > 0 {
		filter["actor_id"] = bson.M{"$in": opt.ActorIDs}
	}
	if len(opt.OnGroupIDs) > 0 {
		filter["on_group_id"] = bson.M{"$in": opt.OnGroupIDs}
	}
	if len(opt.Actions) > 0 {
		filter["action"] = bson.M{"$in": opt.Actions}
	}
	if opt.TimestampGTE > 0 || opt.TimestampLTE > 0 {
		timeFilter := bson.M{}
		if opt.TimestampGTE > 0 {
			timeFilter["$gte"] = opt.TimestampGTE
		}
		if opt.TimestampLTE > 0 {
			timeFilter["$lte"] = opt.TimestampLTE
		}
		filter[defaultTimestampField] = timeFilter
	}

	findOpts := options.Find().SetSort(bson.D{{Key: defaultTimestampField, Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(auditLogCollection).Find(ctx, filter, findOpts)
	if err != nil {
		return fmt.Errorf("find audit logs, err: %w", err)
	}

	var result []*domain.AuditLog
	if err := cursor.All(ctx, &result); err != nil {
		return fmt.Errorf("decode audit logs, err: %w", err)
	}
	opt.Result = result
	return nil
}
