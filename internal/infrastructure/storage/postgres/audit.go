package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "magasin/internal/core/context"
	"magasin/internal/domain/audit"
)

const auditTable = "audit_log"

// CompressionAlgo specifies how the changes payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the payload size above which changes are compressed.
const defaultCompressThreshold = 10 * 1024

type auditRow struct {
	ID                int64           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          int64           `db:"entity_id"`
	Action            string          `db:"action"`
	ActorID           int64           `db:"actor_id"`
	RequestID         *string         `db:"request_id"`
	Changes           []byte          `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditRecorder implements audit.Recorder on the audit_log table.
// Writes join the caller's transaction.
type AuditRecorder struct {
	txm               *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates the recorder with its zstd codec.
func NewAuditRecorder(txm *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditRecorder{
		txm:               txm,
		builder:           Builder(),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record inserts one entry.
func (r *AuditRecorder) Record(ctx context.Context, e audit.Entry) error {
	row, err := r.encode(ctx, e)
	if err != nil {
		return err
	}

	sql, args, err := r.insertQuery(row).ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the trail of one entity, oldest first.
func (r *AuditRecorder) List(ctx context.Context, entityType string, entityID int64) ([]audit.Entry, error) {
	sql, args, err := r.builder.
		Select("id", "entity_type", "entity_id", "action", "actor_id", "request_id",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *AuditRecorder) insertQuery(row auditRow) squirrel.InsertBuilder {
	return r.builder.Insert(auditTable).
		Columns("entity_type", "entity_id", "action", "actor_id", "request_id",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(row.EntityType, row.EntityID, row.Action, row.ActorID, row.RequestID,
			row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt)
}

func (r *AuditRecorder) encode(ctx context.Context, e audit.Entry) (auditRow, error) {
	row := auditRow{
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          string(e.Action),
		ActorID:         appctx.ActorOr(ctx, e.ActorID),
		CompressionAlgo: CompressionNone,
		CreatedAt:       e.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if reqID := appctx.GetRequestID(ctx); reqID != "" {
		row.RequestID = &reqID
	}

	if len(e.Changes) > 0 {
		payload, err := json.Marshal(e.Changes)
		if err != nil {
			return auditRow{}, fmt.Errorf("marshal audit changes: %w", err)
		}
		if len(payload) > r.compressThreshold {
			row.ChangesCompressed = r.encoder.EncodeAll(payload, nil)
			row.CompressionAlgo = CompressionZstd
		} else {
			row.Changes = payload
		}
	}
	return row, nil
}

func (r *AuditRecorder) decode(row auditRow) (audit.Entry, error) {
	e := audit.Entry{
		ID:         row.ID,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Action:     audit.Action(row.Action),
		ActorID:    row.ActorID,
		CreatedAt:  row.CreatedAt,
	}

	payload := row.Changes
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		decompressed, err := r.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("decompress audit changes: %w", err)
		}
		payload = decompressed
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Changes); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal audit changes: %w", err)
		}
	}
	return e, nil
}
