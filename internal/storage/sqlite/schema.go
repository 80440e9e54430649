package sqlite

var documentsSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	canonical_url TEXT NOT NULL DEFAULT '',
	summary_text  TEXT NOT NULL DEFAULT '',
	full_text     TEXT NOT NULL DEFAULT '[]'
)`,
}

var wordsSchema = []string{
	`CREATE TABLE IF NOT EXISTS words (
	id       TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	word     TEXT NOT NULL,
	count    INTEGER NOT NULL CHECK (count >= 0)
)`,
	`CREATE INDEX IF NOT EXISTS words_document_idx ON words (document)`,
}

var scoresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tf_idf_scores (
	id          TEXT PRIMARY KEY,
	word        TEXT NOT NULL,
	document_id TEXT NOT NULL,
	url         TEXT NOT NULL,
	tf          REAL NOT NULL,
	idf         REAL NOT NULL,
	tf_idf      REAL NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS tf_idf_scores_word_idx ON tf_idf_scores (word, tf_idf DESC)`,
}
