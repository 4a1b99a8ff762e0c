package postgres

// ChannelChanges is the LISTEN/NOTIFY channel fed by the bookmarks trigger.
const ChannelChanges = "bookmarks_changes"

// schema is applied at startup. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	title      TEXT        NOT NULL,
	url        TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS bookmarks_user_created_idx
	ON bookmarks (user_id, created_at DESC);

CREATE OR REPLACE FUNCTION bookmarks_notify() RETURNS trigger AS $$
DECLARE
	rec bookmarks;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('bookmarks_changes', json_build_object(
		'op', TG_OP,
		'id', rec.id::text,
		'user_id', rec.user_id
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS bookmarks_notify ON bookmarks;
CREATE TRIGGER bookmarks_notify
	AFTER INSERT OR UPDATE OR DELETE ON bookmarks
	FOR EACH ROW EXECUTE FUNCTION bookmarks_notify();
`
