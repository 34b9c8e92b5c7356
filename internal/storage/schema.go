package storage

const postgresSchema = `
CREATE TABLE IF NOT EXISTS news_articles (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL UNIQUE,
	image_url TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ NOT NULL,
	source_name TEXT NOT NULL DEFAULT '',
	category VARCHAR(50) NOT NULL,
	language VARCHAR(2) NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	virality_description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_news_articles_lang_cat_published
	ON news_articles(language, category, published_at DESC);

-- Translations are keyed by a hash of source text and target language.
CREATE TABLE IF NOT EXISTS translation_cache (
	content_hash VARCHAR(64) PRIMARY KEY,
	target_language VARCHAR(2) NOT NULL,
	translation TEXT NOT NULL,
	provider VARCHAR(50),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	use_count INTEGER NOT NULL DEFAULT 1
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS news_articles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL UNIQUE,
	image_url TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMP NOT NULL,
	source_name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	language TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	virality_description TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_articles_lang_cat_published
	ON news_articles(language, category, published_at DESC);

CREATE TABLE IF NOT EXISTS translation_cache (
	content_hash TEXT PRIMARY KEY,
	target_language TEXT NOT NULL,
	translation TEXT NOT NULL,
	provider TEXT,
	created_at TIMESTAMP NOT NULL,
	last_used_at TIMESTAMP NOT NULL,
	use_count INTEGER NOT NULL DEFAULT 1
);
`
