package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Postgres implementa a trilha de auditoria de decisões e liquidações
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de auditoria
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InsertDecision insere uma decisão de admissão (aceita ou rejeitada)
func (p *Postgres) InsertDecision(ctx context.Context, d *Decision) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO risk_decisions (id,actor_id,event_id,side,amount_cents,odd_value,accepted,reason,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		id, d.ActorID, d.EventID, d.Side, d.AmountCents, d.OddValue, d.Accepted, d.Reason,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetDecision retorna o desfecho registrado de uma decisão pelo id
func (p *Postgres) GetDecision(ctx context.Context, id string) (*Decision, error) {
	d := &Decision{ID: id}
	err := p.db.QueryRowContext(ctx, `
		SELECT actor_id, event_id, side, amount_cents, odd_value, accepted, reason, created_at
		FROM risk_decisions WHERE id=$1`, id,
	).Scan(&d.ActorID, &d.EventID, &d.Side, &d.AmountCents, &d.OddValue, &d.Accepted, &d.Reason, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// InsertSettlement insere o registro de uma liquidação reportada
func (p *Postgres) InsertSettlement(ctx context.Context, s *SettlementRecord) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO risk_settlements (id,event_id,winner,payout_cents,created_at)
		VALUES ($1,$2,$3,$4,NOW())`,
		id, s.EventID, s.Winner, s.PayoutCents,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
