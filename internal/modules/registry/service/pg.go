package service

import (
	"context"
	"fmt"

	"signal_engine/internal/models"
	"signal_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

const fetchEnabledSQL = `
SELECT id, owner_id, enabled, interval, timeframes, lookback,
       condition_code, COALESCE(series_code, ''), indicators, updated_at
FROM traders
WHERE enabled = true AND owner_id = $1
ORDER BY updated_at`

// PgSource читает трейдеры одного владельца из постгреса.
type PgSource struct {
	tx      *db.PgTxManager
	ownerID int64
}

func NewPgSource(tx *db.PgTxManager, ownerID int64) *PgSource {
	return &PgSource{tx: tx, ownerID: ownerID}
}

func (s *PgSource) FetchEnabled(ctx context.Context) (traders []models.TraderConfig, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgSource.FetchEnabled: %w", err)
		}
	}()

	err = s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx, fetchEnabledSQL, s.ownerID)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t          models.TraderConfig
				indicators []byte
			)
			if sErr := rows.Scan(
				&t.ID, &t.OwnerID, &t.Enabled, &t.Interval, &t.Timeframes,
				&t.Lookback, &t.ConditionCode, &t.SeriesCode, &indicators, &t.UpdatedAt,
			); sErr != nil {
				return sErr
			}
			if len(indicators) > 0 {
				if uErr := sonic.Unmarshal(indicators, &t.Indicators); uErr != nil {
					return uErr
				}
			}
			traders = append(traders, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return traders, nil
}
