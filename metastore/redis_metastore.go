package metastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/utils"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type (
	// RedisMetaStore keeps the current metadata pointer per table in a redis
	// key. Creates use SETNX, replace commits use WATCH/MULTI so a concurrent
	// writer aborts the transaction.
	RedisMetaStore struct {
		client *redis.Client
	}
)

const redisKeyPrefix = "tbl_"

func NewRedisMetaStore(ctx context.Context) (*RedisMetaStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to redis metastore")

	if utils.REDIS_ADDR == "" {
		return nil, utils.PermError("REDIS_ADDR not set")
	}

	rms := &RedisMetaStore{
		client: redis.NewClient(&redis.Options{
			Addr:        utils.REDIS_ADDR,
			Password:    utils.REDIS_PASSWORD,
			DB:          0,
			DialTimeout: time.Second * 3,
		}),
	}

	s := time.Now()
	err := backoff.Retry(func() error {
		_, err := rms.client.Ping(ctx).Result()
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
	if err != nil {
		rms.client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}
	logger.Debug().Msgf("redis ping successful in %s", time.Since(s))

	return rms, nil
}

func (rms *RedisMetaStore) tableKey(identifier catalog.TableIdentifier) string {
	return redisKeyPrefix + identifier.String()
}

func (rms *RedisMetaStore) CurrentMetadata(ctx context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	raw, err := rms.client.Get(ctx, rms.tableKey(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error in redis GET: %w", err)
	}
	return unmarshalMetadata(raw)
}

func (rms *RedisMetaStore) CommitMetadata(ctx context.Context, identifier catalog.TableIdentifier, base, next *catalog.TableMetadata) error {
	jsonBytes, err := marshalMetadata(next)
	if err != nil {
		return err
	}
	key := rms.tableKey(identifier)

	if base == nil {
		set, err := rms.client.SetNX(ctx, key, jsonBytes, 0).Result()
		if err != nil {
			return fmt.Errorf("error in redis SETNX: %w", err)
		}
		if !set {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}
		return nil
	}

	err = rms.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// table was dropped under us
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		} else if err != nil {
			return fmt.Errorf("error in redis GET: %w", err)
		}

		current, err := unmarshalMetadata(raw)
		if err != nil {
			return err
		}
		if current.MetadataFileLocation != base.MetadataFileLocation {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonBytes, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
	}
	return err
}

func (rms *RedisMetaStore) DropTable(ctx context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	key := rms.tableKey(identifier)

	raw, err := rms.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &catalog.NoSuchTableError{Identifier: identifier}
	} else if err != nil {
		return nil, fmt.Errorf("error in redis GETDEL: %w", err)
	}
	return unmarshalMetadata(raw)
}

func (rms *RedisMetaStore) ListTables(ctx context.Context, namespace []string) ([]catalog.TableIdentifier, error) {
	prefix := redisKeyPrefix
	if len(namespace) > 0 {
		prefix += strings.Join(namespace, ".") + "."
	}

	var identifiers []catalog.TableIdentifier
	var cursor uint64
	for {
		keys, next, err := rms.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("error in redis SCAN: %w", err)
		}
		for _, key := range keys {
			ident := catalog.ParseTableIdentifier(strings.TrimPrefix(key, redisKeyPrefix))
			// the scan pattern also matches deeper namespaces
			if strings.Join(ident.Namespace, ".") != strings.Join(namespace, ".") {
				continue
			}
			identifiers = append(identifiers, ident)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return identifiers, nil
}

func (rms *RedisMetaStore) Shutdown(_ context.Context) error {
	if err := rms.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
