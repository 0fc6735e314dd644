package docupdate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/docintel/internal/config"
	"github.com/turtacn/docintel/internal/domain/docmodel"
	postgresconn "github.com/turtacn/docintel/internal/infrastructure/database/postgres"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// PostgresAuditor records every suggestion and apply outcome to a Postgres
// table, giving operators a durable trail of what the update agent proposed
// and did independent of the Kafka event stream (which is best-effort).
type PostgresAuditor struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditor runs pending migrations from migrationsPath via the
// shared migrator, then connects to Postgres through the same retrying pool
// factory used by the rest of the service.
func NewPostgresAuditor(ctx context.Context, cfg config.PostgresConfig, migrationsPath string, logger logging.Logger) (*PostgresAuditor, error) {
	if migrationsPath != "" {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)
		if err := postgresconn.RunMigrations(dsn, migrationsPath); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "docupdate: failed to run audit-log migrations")
		}
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool, err := postgresconn.NewConnectionPool(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDBConnectionError, "docupdate: failed to connect to postgres")
	}

	return &PostgresAuditor{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (a *PostgresAuditor) Close() {
	a.pool.Close()
}

// HealthCheck reports whether the audit-log database is reachable.
func (a *PostgresAuditor) HealthCheck(ctx context.Context) error {
	return postgresconn.HealthCheck(ctx, a.pool)
}

// RecordSuggestion implements Auditor.
func (a *PostgresAuditor) RecordSuggestion(ctx context.Context, root string, suggestion docmodel.UpdateSuggestion) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO doc_update_audit (id, root, action, target_path, diff, blocked, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'suggestion', NOW())`,
		uuid.New().String(), root, suggestion.Action, suggestion.TargetPath, suggestion.Diff, suggestion.Blocked)
	if err != nil {
		return errors.Wrap(err, errors.CodeDBQueryError, "docupdate: failed to record suggestion")
	}
	return nil
}

// RecordApply implements Auditor.
func (a *PostgresAuditor) RecordApply(ctx context.Context, root string, result docmodel.UpdateResult) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO doc_update_audit (id, root, action, target_path, diff, blocked, kind, status, error, reindexed, created_at)
		VALUES ($1, $2, $3, $4, '', false, 'apply', $5, $6, $7, NOW())`,
		uuid.New().String(), root, result.Status, result.Path, result.Status, result.Error, result.Reindexed)
	if err != nil {
		return errors.Wrap(err, errors.CodeDBQueryError, "docupdate: failed to record apply result")
	}
	return nil
}
