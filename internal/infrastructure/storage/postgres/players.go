package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"changelog/internal/infrastructure/storage"

	"github.com/jackc/pgx/v5"
)

// === ПОСЕЩЕНИЯ ===

func (b *Backend) UpsertVisit(ctx context.Context, playerID string, at time.Time) error {
	const query = `
		INSERT INTO changelog_lastseen (player_id, "timestamp")
		VALUES ($1, $2)
		ON CONFLICT (player_id) DO UPDATE SET "timestamp" = EXCLUDED."timestamp"`

	return b.withConn(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, query, playerID, at.UTC()); err != nil {
			return fmt.Errorf("upsert visit %s: %w", playerID, classify(err))
		}
		return nil
	})
}

func (b *Backend) GetVisit(ctx context.Context, playerID string) (time.Time, bool, error) {
	const query = `SELECT "timestamp" FROM changelog_lastseen WHERE player_id = $1`

	var seen time.Time
	found := true

	err := b.withConn(ctx, func(q Querier) error {
		err := q.QueryRow(ctx, query, playerID).Scan(&seen)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("get visit %s: %w", playerID, classify(err))
		}
		return nil
	})
	if err != nil || !found {
		return time.Time{}, false, err
	}

	return seen.UTC(), true, nil
}

// === КУЛДАУНЫ ===

func (b *Backend) UpsertCooldown(ctx context.Context, playerID, rewardType string, at time.Time) error {
	const query = `
		INSERT INTO changelog_cooldowns (player_id, reward_type, "timestamp")
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, reward_type) DO UPDATE SET "timestamp" = EXCLUDED."timestamp"`

	return b.withConn(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, query, playerID, rewardType, at.UTC()); err != nil {
			return fmt.Errorf("upsert cooldown %s/%s: %w", playerID, rewardType, classify(err))
		}
		return nil
	})
}

func (b *Backend) LoadAllCooldowns(ctx context.Context) (storage.Cooldowns, error) {
	const query = `SELECT player_id, reward_type, "timestamp" FROM changelog_cooldowns`

	out := make(storage.Cooldowns)

	err := b.withConn(ctx, func(q Querier) error {
		rows, err := q.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("load cooldowns: %w", classify(err))
		}
		defer rows.Close()

		for rows.Next() {
			var (
				player, typ string
				at          time.Time
			)
			if err := rows.Scan(&player, &typ, &at); err != nil {
				return fmt.Errorf("scan cooldown: %w", err)
			}
			types, ok := out[player]
			if !ok {
				types = make(map[string]time.Time)
				out[player] = types
			}
			types[typ] = at.UTC()
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("load cooldowns: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
