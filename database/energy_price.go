package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/orinocoz/energymeter/convert"
	"github.com/orinocoz/energymeter/types"
)

// SaveEnergyPrices upserts a fetched series into the price history.
func (d *Database) SaveEnergyPrices(ctx context.Context, prices []types.EnergyPrice) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction for energy prices: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO energy_price (ts, price, resolution, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(ts) DO UPDATE SET
			price = excluded.price,
			resolution = excluded.resolution,
			saved_at = excluded.saved_at`)
	if err != nil {
		return fmt.Errorf("prepare energy price insert: %w", err)
	}
	defer stmt.Close()

	savedAt := time.Now().Unix()
	for i, p := range prices {
		_, err := stmt.ExecContext(ctx, p.Timestamp.Unix(), convert.RoundFloat64(p.Price, 4), slotMinutes(prices, i), savedAt)
		if err != nil {
			return fmt.Errorf("saving energy price %s: %w", p.Timestamp.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit energy prices: %w", err)
	}
	d.logger.Debug("energy prices saved", slog.Int("count", len(prices)))
	return nil
}

// slotMinutes guesses the slot length from the distance to the neighbour.
func slotMinutes(prices []types.EnergyPrice, i int) int {
	var gap time.Duration
	switch {
	case i+1 < len(prices):
		gap = prices[i+1].Timestamp.Sub(prices[i].Timestamp)
	case i > 0:
		gap = prices[i].Timestamp.Sub(prices[i-1].Timestamp)
	}
	if gap == time.Hour {
		return 60
	}
	return 15
}

func (d *Database) GetEnergyPricesFrom(ctx context.Context, from time.Time) ([]types.EnergyPrice, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT ts, price
		FROM energy_price
		WHERE ts >= ?
		ORDER BY ts ASC`,
		from.Unix())
	if err != nil {
		return nil, fmt.Errorf("fetching energy prices: %w", err)
	}
	defer rows.Close()

	var prices []types.EnergyPrice
	for rows.Next() {
		var ts int64
		var p types.EnergyPrice
		if err := rows.Scan(&ts, &p.Price); err != nil {
			return nil, fmt.Errorf("scanning energy price row: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading energy price rows: %w", err)
	}

	return prices, nil
}

// LastEnergyPriceSave returns when the newest price history row was
// written, or the zero time when the history is empty.
func (d *Database) LastEnergyPriceSave(ctx context.Context) (time.Time, error) {
	var savedAt sql.NullInt64
	if err := d.read.QueryRowContext(ctx, `SELECT MAX(saved_at) FROM energy_price`).Scan(&savedAt); err != nil {
		return time.Time{}, fmt.Errorf("fetching last energy price save: %w", err)
	}
	if !savedAt.Valid || savedAt.Int64 == 0 {
		return time.Time{}, nil
	}
	return time.Unix(savedAt.Int64, 0).UTC(), nil
}

func (d *Database) PurgeEnergyPrice(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	d.logger.Debug("purging table energy_price")
	before := time.Now().Add(-24 * time.Hour * time.Duration(retentionDays))
	res, err := d.write.ExecContext(ctx, `DELETE FROM energy_price WHERE ts < ?`, before.Unix())
	if err != nil {
		return fmt.Errorf("error when purging energy_price: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		d.logger.Warn("can't get rows affected by purge", slog.String("table", "energy_price"), slog.Any("error", err))
	} else {
		d.logger.Debug(fmt.Sprintf("purged %d rows from energy_price", rows))
	}
	return nil
}
