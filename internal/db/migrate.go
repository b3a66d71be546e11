package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func RunMigrations(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    display_name TEXT,
    avatar_id INTEGER DEFAULT 1,
    joined_at DATE,
    is_admin BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS reading_list (
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    book_id TEXT NOT NULL,
    title TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    page_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'To Read' CHECK (status IN ('To Read', 'Reading', 'Finished')),
    rating DOUBLE PRECISION CHECK (rating >= 0 AND rating <= 5),
    review_text TEXT,
    notes TEXT,
    finished_award BOOLEAN NOT NULL DEFAULT false,
    rating_award BOOLEAN NOT NULL DEFAULT false,
    review_award BOOLEAN NOT NULL DEFAULT false,
    added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, book_id)
);

CREATE TABLE IF NOT EXISTS points_balances (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    earned INTEGER NOT NULL DEFAULT 0 CHECK (earned >= 0),
    redeemed INTEGER NOT NULL DEFAULT 0 CHECK (redeemed >= 0 AND redeemed <= earned)
);

CREATE TABLE IF NOT EXISTS point_transactions (
    id UUID PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('earned', 'redeemed')),
    reason TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_point_transactions_user ON point_transactions (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS streak_states (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    slots JSONB NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS habit_goals (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    periodicity TEXT NOT NULL CHECK (periodicity IN ('daily', 'weekly', 'monthly', 'yearly')),
    metric TEXT NOT NULL CHECK (metric IN ('books_read', 'pages_read')),
    target_value INTEGER NOT NULL CHECK (target_value >= 1),
    progress_value INTEGER NOT NULL DEFAULT 0,
    period_start DATE NOT NULL,
    history JSONB NOT NULL DEFAULT '[]'
);
`
	_, err := db.ExecContext(context.Background(), schema)
	if err != nil {
		return err
	}

	alters := `
DO $$ BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns WHERE table_name='reading_list' AND column_name='notes'
    ) THEN
        ALTER TABLE reading_list ADD COLUMN notes TEXT;
    END IF;
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns WHERE table_name='users' AND column_name='is_admin'
    ) THEN
        ALTER TABLE users ADD COLUMN is_admin BOOLEAN NOT NULL DEFAULT false;
    END IF;
END $$;`
	_, err = db.ExecContext(context.Background(), alters)
	return err
}
