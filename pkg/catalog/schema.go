package catalog

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

-- One row per written bundle
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    kind TEXT NOT NULL,            -- web or repository
    site_name TEXT NOT NULL,
    output_dir TEXT NOT NULL,
    format TEXT NOT NULL,          -- markdown or json
    layout TEXT NOT NULL,          -- combined or split
    page_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL       -- RFC 3339, UTC
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site_name);
`
