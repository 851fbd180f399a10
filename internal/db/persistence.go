package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/entity"
	"github.com/udisondev/bodysim/internal/wire"
)

// ErrNoBody возвращается при попытке сохранить существо без тела.
var ErrNoBody = errors.New("creature has no body")

// SnapshotService сохраняет и восстанавливает тела существ.
type SnapshotService struct {
	pool     *pgxpool.Pool
	repo     *BodyRepository
	resolver body.Resolver
}

// NewSnapshotService создаёт новый сервис.
func NewSnapshotService(pool *pgxpool.Pool, repo *BodyRepository, resolver body.Resolver) *SnapshotService {
	return &SnapshotService{
		pool:     pool,
		repo:     repo,
		resolver: resolver,
	}
}

// EncodeBody serializes the body's part tree.
func EncodeBody(b *body.Body) ([]byte, error) {
	if b == nil || b.Root() == nil {
		return nil, ErrNoBody
	}
	w := wire.Get()
	defer w.Put()
	if err := body.EncodePart(w, b.Root()); err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	return w.BytesCopy(), nil
}

// Row builds a snapshot row for c.
func Row(c *entity.Creature, template, board string) (SnapshotRow, error) {
	data, err := EncodeBody(c.Body())
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("creature %s: %w", c.ID(), err)
	}
	return SnapshotRow{
		CreatureID:  c.ID(),
		Name:        c.Name(),
		Template:    template,
		Board:       board,
		Dead:        c.IsDead(),
		DeathReason: c.DeathReason(),
		Data:        data,
	}, nil
}

// SaveAll saves all snapshot rows in a single transaction.
// Either every row is stored or none.
func (s *SnapshotService) SaveAll(ctx context.Context, rows []SnapshotRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "rows", len(rows), "error", err)
		}
	}()

	if err := s.repo.SaveAllTx(ctx, tx, rows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}

	slog.Debug("snapshots saved", "rows", len(rows))
	return nil
}

// Restore loads the snapshot of id and decodes its root part.
// The returned part is detached; callers mount it with Body.SetRoot.
func (s *SnapshotService) Restore(ctx context.Context, id uuid.UUID) (*body.Part, SnapshotRow, error) {
	row, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, SnapshotRow{}, err
	}
	root, err := body.DecodePart(wire.NewReader(row.Data), s.resolver)
	if err != nil {
		return nil, SnapshotRow{}, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return root, row, nil
}
