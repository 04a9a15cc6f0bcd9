package service

import (
	"context"
	"fmt"

	"signal_engine/internal/models"
	"signal_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

const insertSignalSQL = `
INSERT INTO signals
    (id, trader_id, symbol, interval, triggered_at, price, indicator_data, source, instance_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// PgStore implement db store
type PgStore struct {
	tx *db.PgTxManager
}

func NewPgStore(tx *db.PgTxManager) *PgStore {
	return &PgStore{tx: tx}
}

func (s *PgStore) Insert(ctx context.Context, sig *models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.Insert: %w", err)
		}
	}()

	// indicator_data — один jsonb: серии + снапшот свечей под ключом klines
	payload := make(map[string]interface{}, len(sig.IndicatorData)+1)
	for id, points := range sig.IndicatorData {
		payload[id] = points
	}
	payload["klines"] = sig.Klines

	var data []byte
	data, err = sonic.Marshal(payload)
	if err != nil {
		return err
	}

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx, insertSignalSQL,
			sig.ID, sig.TraderID, sig.Symbol, sig.Interval,
			sig.TriggeredAt, sig.Price, data, string(sig.Source), sig.InstanceID,
		)
		return execErr
	})
}
