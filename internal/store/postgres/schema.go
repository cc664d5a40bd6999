package postgres

// SchemaSQL creates the provenance tables. Executed by the initdb
// command; the pipeline itself never creates schema.
//
// rewritten_summary on sources is populated by a downstream
// summarization collaborator, never by this pipeline.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS sources (
  source_id         TEXT PRIMARY KEY,
  url               TEXT NOT NULL,
  domain            TEXT NOT NULL,
  scrape_date       TIMESTAMPTZ NOT NULL,
  license_note      TEXT,
  raw_text          TEXT,
  rewritten_summary TEXT,
  metadata          JSONB
);

CREATE TABLE IF NOT EXISTS personalities (
  person_id      TEXT PRIMARY KEY,
  name           TEXT NOT NULL,
  canonical_name TEXT NOT NULL UNIQUE,
  description    TEXT,
  source_refs    TEXT[] NOT NULL DEFAULT '{}',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sociotype_labels (
  label_id       TEXT PRIMARY KEY,
  person_id      TEXT NOT NULL REFERENCES personalities(person_id),
  label_source   TEXT NOT NULL,
  socionics_type TEXT NOT NULL,
  dcnh           TEXT,
  confidence     REAL,
  evidence       TEXT,
  inserted_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sources_domain ON sources(domain);
CREATE INDEX IF NOT EXISTS idx_sources_scrape_date ON sources(scrape_date);
CREATE INDEX IF NOT EXISTS idx_personalities_name ON personalities(name);
CREATE INDEX IF NOT EXISTS idx_sociotype_labels_person_id
    ON sociotype_labels(person_id);
CREATE INDEX IF NOT EXISTS idx_sociotype_labels_type
    ON sociotype_labels(socionics_type);
`
