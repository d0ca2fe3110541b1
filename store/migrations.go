package store

// AUTOINCREMENT keeps SQLite from handing out the id of a deleted row again.
const schema = `
CREATE TABLE IF NOT EXISTS games (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    platform TEXT NOT NULL,
    purchase_date TEXT NOT NULL,
    release_date TEXT,
    cover_url TEXT,
    description TEXT,
    igdb_id INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_games_platform ON games(platform);
CREATE INDEX IF NOT EXISTS idx_games_igdb_id ON games(igdb_id);
`
