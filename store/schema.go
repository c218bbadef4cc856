package store

// Schema is the complete petition database schema.
//
// petitions is keyed by (source, external_id): exactly one row per upstream
// record, mutated in place and never deleted by the sync engine. votes_history
// keeps one vote snapshot per (petition, source, date), last write wins.
// daily_stats keeps one aggregate row per calendar date.
const Schema = `
CREATE TABLE IF NOT EXISTS petitions (
    source          TEXT NOT NULL,
    external_id     TEXT NOT NULL,
    number          TEXT,
    title           TEXT NOT NULL DEFAULT '',
    date            TEXT,
    date_normalized TEXT,
    status          TEXT NOT NULL DEFAULT 'unknown',
    votes           INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    votes_previous  INTEGER,
    url             TEXT NOT NULL DEFAULT '',
    author          TEXT,
    text_length     INTEGER,
    has_answer      INTEGER NOT NULL DEFAULT 0,
    crawled_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    PRIMARY KEY (source, external_id)
);
CREATE INDEX IF NOT EXISTS idx_petitions_status ON petitions(source, status);
CREATE INDEX IF NOT EXISTS idx_petitions_votes ON petitions(source, votes DESC);

CREATE TABLE IF NOT EXISTS votes_history (
    petition_id TEXT NOT NULL,
    source      TEXT NOT NULL,
    date        TEXT NOT NULL,
    votes       INTEGER NOT NULL,
    PRIMARY KEY (petition_id, source, date)
);
CREATE INDEX IF NOT EXISTS idx_votes_history_date ON votes_history(source, date);

CREATE TABLE IF NOT EXISTS daily_stats (
    date              TEXT PRIMARY KEY,
    president_new     INTEGER NOT NULL DEFAULT 0,
    cabinet_new       INTEGER NOT NULL DEFAULT 0,
    total_votes_delta INTEGER NOT NULL DEFAULT 0,
    status_changes    TEXT NOT NULL DEFAULT '[]'
);
`
