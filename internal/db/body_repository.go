package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound возвращается, когда снапшот существа отсутствует.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotRow представляет строку из таблицы body_snapshots.
type SnapshotRow struct {
	CreatureID  uuid.UUID
	Name        string
	Template    string
	Board       string
	Dead        bool
	DeathReason string
	Data        []byte // закодированное дерево частей тела
	UpdatedAt   time.Time
}

// BodyRepository управляет снапшотами тел в PostgreSQL.
type BodyRepository struct {
	db *pgxpool.Pool
}

// NewBodyRepository создаёт новый BodyRepository.
func NewBodyRepository(pool *pgxpool.Pool) *BodyRepository {
	return &BodyRepository{db: pool}
}

const upsertSnapshot = `
	INSERT INTO body_snapshots (creature_id, name, template, board, dead, death_reason, data, updated_at)
	VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (creature_id) DO UPDATE SET
		name = EXCLUDED.name,
		template = EXCLUDED.template,
		board = EXCLUDED.board,
		dead = EXCLUDED.dead,
		death_reason = EXCLUDED.death_reason,
		data = EXCLUDED.data,
		updated_at = NOW()`

// Save сохраняет снапшот (INSERT или UPDATE по creature_id).
func (r *BodyRepository) Save(ctx context.Context, row SnapshotRow) error {
	_, err := r.db.Exec(ctx, upsertSnapshot, snapshotArgs(row)...)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", row.CreatureID, err)
	}
	return nil
}

// SaveAllTx сохраняет пачку снапшотов внутри транзакции через pgx.Batch.
func (r *BodyRepository) SaveAllTx(ctx context.Context, tx pgx.Tx, rows []SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertSnapshot, snapshotArgs(row)...)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for _, row := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("saving snapshot %s: %w", row.CreatureID, err)
		}
	}
	return nil
}

func snapshotArgs(row SnapshotRow) []any {
	return []any{row.CreatureID.String(), row.Name, row.Template, row.Board, row.Dead, row.DeathReason, row.Data}
}

const selectSnapshot = `
	SELECT creature_id::text, name, template, board, dead, death_reason, data, updated_at
	FROM body_snapshots`

// Load возвращает снапшот существа.
// Возвращает ErrNotFound, если записи нет.
func (r *BodyRepository) Load(ctx context.Context, id uuid.UUID) (SnapshotRow, error) {
	row, err := scanSnapshot(r.db.QueryRow(ctx, selectSnapshot+` WHERE creature_id = $1::uuid`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotRow{}, fmt.Errorf("loading snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return row, nil
}

// ListByBoard возвращает все снапшоты доски, отсортированные по имени.
func (r *BodyRepository) ListByBoard(ctx context.Context, board string) ([]SnapshotRow, error) {
	rows, err := r.db.Query(ctx, selectSnapshot+` WHERE board = $1 ORDER BY name, creature_id`, board)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots for board %q: %w", board, err)
	}
	defer rows.Close()

	var result []SnapshotRow
	for rows.Next() {
		row, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return result, nil
}

// Delete удаляет снапшот. Отсутствие записи не считается ошибкой.
func (r *BodyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM body_snapshots WHERE creature_id = $1::uuid`, id.String())
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	return nil
}

func scanSnapshot(s pgx.Row) (SnapshotRow, error) {
	var row SnapshotRow
	var id string
	if err := s.Scan(&id, &row.Name, &row.Template, &row.Board, &row.Dead, &row.DeathReason, &row.Data, &row.UpdatedAt); err != nil {
		return SnapshotRow{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("parsing creature id %q: %w", id, err)
	}
	row.CreatureID = parsed
	return row, nil
}
