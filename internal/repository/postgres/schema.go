package postgres

// Schema - аккаунты и история запросов.
// queries_used >= 0 держим на уровне CHECK.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                BIGINT PRIMARY KEY,
    username          TEXT NOT NULL DEFAULT '',
    plan_type         TEXT NOT NULL DEFAULT 'free',
    allowed_queries   INTEGER NOT NULL DEFAULT 2,
    queries_used      INTEGER NOT NULL DEFAULT 0 CHECK (queries_used >= 0),
    results_per_query INTEGER NOT NULL DEFAULT 5,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS scraped_queries (
    id           BIGSERIAL PRIMARY KEY,
    account_id   BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    query        TEXT NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS scraped_queries_account_created_idx
    ON scraped_queries (account_id, created_at DESC);
`
