package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY,
    authorized INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

-- Timestamps are fixed width UTC text; created_day is the local calendar day used by the library view.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'new',
    learning_step INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review_date TEXT NOT NULL,
    last_review_date TEXT,
    is_new INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    created_day TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_user_day ON cards (user_id, created_day);
`
