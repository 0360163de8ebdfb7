package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"smc_bot/internal/models"
	"smc_bot/pkg/db"
)

const signalColumns = `id::text, user_id, symbol, direction, entry, sl, tp1, tp2, tp3, confidence,
	reasoning, created_at, tracked, tp1_hit, tp1_hit_at, tp2_hit, tp2_hit_at, tp3_hit, tp3_hit_at,
	breakeven_set, closed, closed_at, closed_price, closed_reason`

// Postgres stores signals in the signals table (see db.Migrate).
type Postgres struct {
	tx db.TxManager
}

var _ Store = (*Postgres)(nil)

func NewPostgres(tx db.TxManager) *Postgres {
	return &Postgres{tx: tx}
}

func (p *Postgres) Create(ctx context.Context, s models.Signal) (string, error) {
	reasoning, err := sonic.Marshal(nonNil(s.Reasoning))
	if err != nil {
		return "", errors.Wrap(err, "marshal reasoning")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()

	_, err = p.tx.Conn().Exec(ctx, `
		insert into signals (id, user_id, symbol, direction, entry, sl, tp1, tp2, tp3, confidence,
			reasoning, created_at, tracked)
		values ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)`,
		id, s.UserID, s.Symbol, string(s.Direction), s.Entry, s.SL, s.TP1, s.TP2, s.TP3, s.Confidence,
		string(reasoning), s.CreatedAt, s.Tracked,
	)
	if err != nil {
		return "", errors.Wrap(err, "insert signal")
	}
	return id, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (models.Signal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Signal{}, models.ErrSignalNotFound
	}
	row := p.tx.Conn().QueryRow(ctx, `select `+signalColumns+` from signals where id = $1::uuid`, id)
	s, err := scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Signal{}, models.ErrSignalNotFound
	}
	if err != nil {
		return models.Signal{}, errors.Wrap(err, "get signal")
	}
	return s, nil
}

// Update writes every set field of the patch in one transaction.
func (p *Postgres) Update(ctx context.Context, id string, patch models.SignalPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrSignalNotFound
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, i+1))
		args = append(args, f.Value)
	}
	args = append(args, id)
	query := fmt.Sprintf("update signals set %s where id = $%d::uuid", strings.Join(sets, ", "), len(args))

	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx, query, args...)
		if err != nil {
			return errors.Wrap(err, "update signal")
		}
		if tag.RowsAffected() == 0 {
			return models.ErrSignalNotFound
		}
		return nil
	})
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrSignalNotFound
	}
	tag, err := p.tx.Conn().Exec(ctx, `delete from signals where id = $1::uuid`, id)
	if err != nil {
		return errors.Wrap(err, "delete signal")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSignalNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, userID string, limit int) ([]models.Signal, error) {
	q := `select ` + signalColumns + ` from signals where user_id = $1 order by created_at desc`
	args := []any{userID}
	if limit > 0 {
		q += ` limit $2`
		args = append(args, limit)
	}
	return p.query(ctx, q, args...)
}

func (p *Postgres) Tracked(ctx context.Context, userID string) ([]models.Signal, error) {
	return p.query(ctx, `select `+signalColumns+` from signals
		where user_id = $1 and tracked order by created_at desc`, userID)
}

func (p *Postgres) OpenTracked(ctx context.Context, userID string) ([]models.Signal, error) {
	return p.query(ctx, `select `+signalColumns+` from signals
		where user_id = $1 and tracked and not closed order by created_at desc`, userID)
}

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]models.Signal, error) {
	rows, err := p.tx.Conn().Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query signals")
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan signal")
		}
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "iterate signals")
}

func scanSignal(row pgx.Row) (models.Signal, error) {
	var (
		s         models.Signal
		direction string
		reasoning []byte
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Symbol, &direction, &s.Entry, &s.SL, &s.TP1, &s.TP2, &s.TP3, &s.Confidence,
		&reasoning, &s.CreatedAt, &s.Tracked, &s.TP1Hit, &s.TP1HitAt, &s.TP2Hit, &s.TP2HitAt, &s.TP3Hit, &s.TP3HitAt,
		&s.BreakevenSet, &s.Closed, &s.ClosedAt, &s.ClosedPrice, &s.ClosedReason,
	)
	if err != nil {
		return models.Signal{}, err
	}
	s.Direction = models.Direction(direction)
	if len(reasoning) > 0 {
		if err := sonic.Unmarshal(reasoning, &s.Reasoning); err != nil {
			return models.Signal{}, errors.Wrap(err, "decode reasoning")
		}
	}
	return s, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
