// Package metadata implements the durable path -> JobMetadata table behind
// interfaces.MetadataStore on top of database/sql. It is driver-agnostic: a
// small dialect helper (dialect.go) absorbs the handful of differences
// between the three supported backends (placeholder style, column DDL), and
// every query above that is plain ANSI SQL run through the standard
// database/sql pool.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"

	_ "modernc.org/sqlite"
)

// Store is the database/sql-backed MetadataStore.
type Store struct {
	db      *sql.DB
	dialect dialect
	retries int
	logger  *common.Logger
}

// New opens the backing database named by cfg.Type/cfg.URI (or cfg.Name for
// sqlite's file path) and caps the connection pool at poolSize when it is
// positive.
func New(cfg *common.DatabaseConfig, poolSize int, logger *common.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Type)
	if err != nil {
		return nil, err
	}

	db, _, _, err := OpenDatabase(cfg, poolSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: d,
		retries: cfg.GetTransactionRetries(),
		logger:  logger,
	}, nil
}

// Init creates the backing table if it does not already exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.createTableDDL)
	if err != nil {
		return fmt.Errorf("metadata: init: %w", err)
	}
	return nil
}

// Drop removes the backing table entirely.
func (s *Store) Drop(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS blobs")
	if err != nil {
		return fmt.Errorf("metadata: drop: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withRetry runs fn up to s.retries+1 times, rolling back between attempts
// on transactional failure.
func (s *Store) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	attempts := s.retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			lastErr = err
			continue
		}
		if err := tx.Commit(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Select returns rows matching filters (an AND of column=value equalities).
func (s *Store) Select(ctx context.Context, filters map[string]any) interfaces.TransactionResult {
	var rows []*models.JobMetadata
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		query, args := s.dialect.selectQuery(filters)
		result, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer result.Close()

		rows, err = scanRows(result)
		return err
	})
	if err != nil {
		return interfaces.TransactionResult{Message: "select failed", Err: err}
	}
	return interfaces.TransactionResult{Message: "ok", Data: rows}
}

// Insert appends rows to the table. A row whose path already exists fails
// the transaction (callers that want upsert semantics use UpsertByPath).
func (s *Store) Insert(ctx context.Context, rows []*models.JobMetadata) interfaces.TransactionResult {
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			query, args := s.dialect.insertQuery(row)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return interfaces.TransactionResult{Message: "insert failed", Err: err}
	}
	return interfaces.TransactionResult{Message: "ok", Data: rows}
}

// Update applies the fields of each row to the rows matched by filters.
func (s *Store) Update(ctx context.Context, rows []*models.JobMetadata, filters map[string]any) interfaces.TransactionResult {
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			query, args := s.dialect.updateQuery(row, filters)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return interfaces.TransactionResult{Message: "update failed", Err: err}
	}
	return interfaces.TransactionResult{Message: "ok", Data: rows}
}

// UpsertByPath inserts row, or updates the existing row sharing row.Path.
// Implemented as an existence probe plus insert-or-update inside a single
// retried transaction, since sqlite, postgres, and mysql don't share a
// single portable UPSERT syntax.
func (s *Store) UpsertByPath(ctx context.Context, row *models.JobMetadata) interfaces.TransactionResult {
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		existsQuery, existsArgs := s.dialect.existsByPathQuery(row.Path)
		var count int
		if err := tx.QueryRowContext(ctx, existsQuery, existsArgs...).Scan(&count); err != nil {
			return err
		}

		if count == 0 {
			query, args := s.dialect.insertQuery(row)
			_, err := tx.ExecContext(ctx, query, args...)
			return err
		}

		query, args := s.dialect.updateByPathQuery(row)
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return interfaces.TransactionResult{Message: "upsert failed", Err: err}
	}
	return interfaces.TransactionResult{Message: "ok", Data: []*models.JobMetadata{row}}
}

// Delete removes rows matching filters.
func (s *Store) Delete(ctx context.Context, filters map[string]any) interfaces.TransactionResult {
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		query, args := s.dialect.deleteQuery(filters)
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return interfaces.TransactionResult{Message: "delete failed", Err: err}
	}
	return interfaces.TransactionResult{Message: "ok"}
}

func scanRows(result *sql.Rows) ([]*models.JobMetadata, error) {
	var rows []*models.JobMetadata
	for result.Next() {
		row := &models.JobMetadata{}
		var errText sql.NullString
		if err := result.Scan(
			&row.ID, &row.Key, &row.Namespace, &row.Path, &row.Filename,
			&row.ContentType, &row.OperationType, &row.BackupType, &row.Encoding,
			&row.Context, &row.Status, &errText,
		); err != nil {
			return nil, err
		}
		row.Error = errText.String
		rows = append(rows, row)
	}
	return rows, result.Err()
}

var metadataColumns = []string{
	"id", "key", "namespace", "path", "filename", "content_type",
	"operation_type", "backup_type", "encoding", "context", "status", "error",
}

func rowValues(row *models.JobMetadata) []any {
	return []any{
		row.ID, row.Key, row.Namespace, row.Path, row.Filename,
		row.ContentType, string(row.OperationType), string(row.BackupType),
		row.Encoding, row.Context, string(row.Status), row.Error,
	}
}

func (d dialect) selectColumns() string {
	cols := make([]string, len(metadataColumns))
	for i, c := range metadataColumns {
		if c == "key" {
			cols[i] = d.keyColumn()
		} else {
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

func (d dialect) selectQuery(filters map[string]any) (string, []any) {
	where, args := d.whereClause(filters, 1)
	query := fmt.Sprintf("SELECT %s FROM blobs", d.selectColumns())
	if where != "" {
		query += " WHERE " + where
	}
	return query, args
}

func (d dialect) insertQuery(row *models.JobMetadata) (string, []any) {
	placeholders := make([]string, len(metadataColumns))
	for i := range metadataColumns {
		placeholders[i] = d.placeholder(i + 1)
	}
	cols := make([]string, len(metadataColumns))
	for i, c := range metadataColumns {
		if c == "key" {
			cols[i] = d.keyColumn()
		} else {
			cols[i] = c
		}
	}
	query := fmt.Sprintf(
		"INSERT INTO blobs (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, rowValues(row)
}

func (d dialect) updateByPathQuery(row *models.JobMetadata) (string, []any) {
	set := []string{
		d.keyColumn() + " = " + d.placeholder(1),
		"namespace = " + d.placeholder(2),
		"filename = " + d.placeholder(3),
		"content_type = " + d.placeholder(4),
		"operation_type = " + d.placeholder(5),
		"backup_type = " + d.placeholder(6),
		"encoding = " + d.placeholder(7),
		"context = " + d.placeholder(8),
		"status = " + d.placeholder(9),
		"error = " + d.placeholder(10),
	}
	query := fmt.Sprintf(
		"UPDATE blobs SET %s WHERE path = %s",
		strings.Join(set, ", "),
		d.placeholder(11),
	)
	args := []any{
		row.Key, row.Namespace, row.Filename, row.ContentType,
		string(row.OperationType), string(row.BackupType), row.Encoding,
		row.Context, string(row.Status), row.Error, row.Path,
	}
	return query, args
}

func (d dialect) updateQuery(row *models.JobMetadata, filters map[string]any) (string, []any) {
	setArgs := []any{
		row.Key, row.Namespace, row.Filename, row.ContentType,
		string(row.OperationType), string(row.BackupType), row.Encoding,
		row.Context, string(row.Status), row.Error,
	}
	set := []string{
		d.keyColumn() + " = " + d.placeholder(1),
		"namespace = " + d.placeholder(2),
		"filename = " + d.placeholder(3),
		"content_type = " + d.placeholder(4),
		"operation_type = " + d.placeholder(5),
		"backup_type = " + d.placeholder(6),
		"encoding = " + d.placeholder(7),
		"context = " + d.placeholder(8),
		"status = " + d.placeholder(9),
		"error = " + d.placeholder(10),
	}
	where, whereArgs := d.whereClause(filters, len(setArgs)+1)
	query := fmt.Sprintf("UPDATE blobs SET %s", strings.Join(set, ", "))
	if where != "" {
		query += " WHERE " + where
	}
	return query, append(setArgs, whereArgs...)
}

func (d dialect) deleteQuery(filters map[string]any) (string, []any) {
	where, args := d.whereClause(filters, 1)
	query := "DELETE FROM blobs"
	if where != "" {
		query += " WHERE " + where
	}
	return query, args
}

func (d dialect) existsByPathQuery(path string) (string, []any) {
	return fmt.Sprintf("SELECT COUNT(*) FROM blobs WHERE path = %s", d.placeholder(1)), []any{path}
}

// whereClause builds a deterministically ordered AND of column=placeholder
// equalities from filters, coercing each value toward its column's backing
// type before binding.
func (d dialect) whereClause(filters map[string]any, startPos int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sortStrings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	pos := startPos
	for _, k := range keys {
		col := k
		if k == "key" {
			col = d.keyColumn()
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", col, d.placeholder(pos)))
		args = append(args, coerceFilterValue(filters[k]))
		pos++
	}
	return strings.Join(clauses, " AND "), args
}

func coerceFilterValue(v any) any {
	switch val := v.(type) {
	case models.JobStatus:
		return string(val)
	case models.OperationType:
		return string(val)
	case models.BackupType:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

var _ interfaces.MetadataStore = (*Store)(nil)
