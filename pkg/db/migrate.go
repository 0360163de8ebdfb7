package db

import (
	"context"
	"fmt"
)

var schema = []string{
	`create table if not exists signals (
		id uuid primary key,
		user_id text not null,
		symbol text not null,
		direction text not null,
		entry double precision not null default 0,
		sl double precision not null default 0,
		tp1 double precision not null default 0,
		tp2 double precision not null default 0,
		tp3 double precision not null default 0,
		confidence double precision not null default 0,
		reasoning jsonb not null default '[]'::jsonb,
		created_at timestamptz not null default now(),
		tracked boolean not null default false,
		tp1_hit boolean not null default false,
		tp1_hit_at timestamptz null,
		tp2_hit boolean not null default false,
		tp2_hit_at timestamptz null,
		tp3_hit boolean not null default false,
		tp3_hit_at timestamptz null,
		breakeven_set boolean not null default false,
		closed boolean not null default false,
		closed_at timestamptz null,
		closed_price double precision not null default 0,
		closed_reason text not null default ''
	);`,
	`create index if not exists signals_user_created_idx on signals (user_id, created_at desc);`,
	`create index if not exists signals_open_tracked_idx on signals (user_id) where tracked and not closed;`,
}

// Schema returns the DDL applied by Migrate.
func Schema() []string {
	return append([]string(nil), schema...)
}

// Migrate creates the tables the service needs. Statements are idempotent.
func Migrate(ctx context.Context, conn Transaction) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
