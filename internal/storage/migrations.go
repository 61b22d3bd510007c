package storage

// SQL migrations for the local client database.
// All migrations use IF NOT EXISTS to be idempotent.

// credentials holds at most one row (id = 1): the persisted session.
// Tokens are AES-GCM ciphertext with their nonces stored alongside.
const migrationCredentials = `
CREATE TABLE IF NOT EXISTS credentials (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    access_token BLOB NOT NULL,
    access_nonce BLOB NOT NULL,
    refresh_token BLOB NOT NULL,
    refresh_nonce BLOB NOT NULL,
    username TEXT NOT NULL,
    cash REAL NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationTrades = `
CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
    quantity REAL NOT NULL,
    cash_after REAL NOT NULL,
    message TEXT,
    executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at);
`
