package history

const schema = `
-- Runs: one row per balance check
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    address_count INTEGER NOT NULL,
    total TEXT NOT NULL,
    valid_count INTEGER NOT NULL,
    absent_count INTEGER NOT NULL,
    failure_count INTEGER NOT NULL,
    average TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Balances: every address outcome of a run, in completion order
CREATE TABLE IF NOT EXISTS balances (
    balance_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    address TEXT NOT NULL,
    outcome TEXT NOT NULL,
    balance TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_balances_run ON balances(run_id);
CREATE INDEX IF NOT EXISTS idx_balances_address ON balances(address);
`
