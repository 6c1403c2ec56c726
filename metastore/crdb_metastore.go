package metastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/utils"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

type (
	// CRDBMetaStore keeps one row per table in table_pointers. Creates are
	// INSERT ON CONFLICT DO NOTHING, replace commits are a conditional UPDATE
	// on the previous metadata_location inside a retryable transaction.
	CRDBMetaStore struct {
		pool *pgxpool.Pool
	}
)

func NewCRDBMetaStore(ctx context.Context) (*CRDBMetaStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to CRDB metastore")

	if utils.CRDB_DSN == "" {
		return nil, utils.PermError("CRDB_DSN not set")
	}

	config, err := pgxpool.ParseConfig(utils.CRDB_DSN)
	if err != nil {
		return nil, fmt.Errorf("error in pgxpool.ParseConfig: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.HealthCheckPeriod = time.Second * 5
	config.MaxConnLifetime = time.Minute * 30
	config.MaxConnIdleTime = time.Minute * 30

	var pool *pgxpool.Pool
	err = backoff.Retry(func() error {
		pool, err = pgxpool.ConnectConfig(ctx, config)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
	if err != nil {
		return nil, fmt.Errorf("error connecting to CRDB: %w", err)
	}

	return &CRDBMetaStore{pool: pool}, nil
}

func namespaceKey(namespace []string) string {
	return strings.Join(namespace, ".")
}

func (cms *CRDBMetaStore) CurrentMetadata(ctx context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	var raw []byte
	err := cms.pool.QueryRow(ctx, `SELECT metadata FROM table_pointers WHERE namespace = $1 AND name = $2`,
		namespaceKey(identifier.Namespace), identifier.Name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error in QueryRow: %w", err)
	}
	return unmarshalMetadata(raw)
}

func (cms *CRDBMetaStore) CommitMetadata(ctx context.Context, identifier catalog.TableIdentifier, base, next *catalog.TableMetadata) error {
	jsonBytes, err := marshalMetadata(next)
	if err != nil {
		return err
	}
	ns := namespaceKey(identifier.Namespace)

	if base == nil {
		tag, err := cms.pool.Exec(ctx, `
			INSERT INTO table_pointers (namespace, name, metadata_location, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (namespace, name) DO NOTHING`,
			ns, identifier.Name, next.MetadataFileLocation, jsonBytes)
		if err != nil {
			return fmt.Errorf("error in INSERT: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}
		return nil
	}

	return crdbpgx.ExecuteTx(ctx, cms.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE table_pointers
			SET metadata_location = $1, metadata = $2, updated_at = now()
			WHERE namespace = $3 AND name = $4 AND metadata_location = $5`,
			next.MetadataFileLocation, jsonBytes, ns, identifier.Name, base.MetadataFileLocation)
		if err != nil {
			return fmt.Errorf("error in UPDATE: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}
		return nil
	})
}

func (cms *CRDBMetaStore) DropTable(ctx context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	var raw []byte
	err := cms.pool.QueryRow(ctx, `
		DELETE FROM table_pointers WHERE namespace = $1 AND name = $2 RETURNING metadata`,
		namespaceKey(identifier.Namespace), identifier.Name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &catalog.NoSuchTableError{Identifier: identifier}
	} else if err != nil {
		return nil, fmt.Errorf("error in DELETE: %w", err)
	}
	return unmarshalMetadata(raw)
}

func (cms *CRDBMetaStore) ListTables(ctx context.Context, namespace []string) ([]catalog.TableIdentifier, error) {
	rows, err := cms.pool.Query(ctx, `SELECT name FROM table_pointers WHERE namespace = $1 ORDER BY name`,
		namespaceKey(namespace))
	if err != nil {
		return nil, fmt.Errorf("error in Query: %w", err)
	}
	defer rows.Close()

	var identifiers []catalog.TableIdentifier
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error in Scan: %w", err)
		}
		identifiers = append(identifiers, catalog.TableIdentifier{Namespace: namespace, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error in rows: %w", err)
	}
	return identifiers, nil
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	cms.pool.Close()
	return nil
}
