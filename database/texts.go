package database

import "context"

const textColumns = `key, value_ru, value_en, category, description, updated_at`

func scanText(row interface{ Scan(...any) error }) (*TextEntry, error) {
	var t TextEntry
	err := row.Scan(&t.Key, &t.ValueRU, &t.ValueEN, &t.Category, &t.Description, &t.UpdatedAt)
	return &t, err
}

func (db *DB) GetText(ctx context.Context, key string) (*TextEntry, error) {
	return scanText(db.q.QueryRow(ctx,
		`SELECT `+textColumns+` FROM texts WHERE key = $1`, key))
}

func (db *DB) UpsertText(ctx context.Context, t *TextEntry) (*TextEntry, error) {
	query := `
		INSERT INTO texts (key, value_ru, value_en, category, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			value_ru = EXCLUDED.value_ru,
			value_en = EXCLUDED.value_en,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING ` + textColumns
	return scanText(db.q.QueryRow(ctx, query, t.Key, t.ValueRU, t.ValueEN, t.Category, t.Description))
}

// InsertTextIfMissing seeds a default; existing keys are left intact.
func (db *DB) InsertTextIfMissing(ctx context.Context, t *TextEntry) error {
	query := `
		INSERT INTO texts (key, value_ru, value_en, category, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING`
	_, err := db.q.Exec(ctx, query, t.Key, t.ValueRU, t.ValueEN, t.Category, t.Description)
	return err
}

func (db *DB) DeleteText(ctx context.Context, key string) error {
	_, err := db.q.Exec(ctx, `DELETE FROM texts WHERE key = $1`, key)
	return err
}

func (db *DB) SearchTexts(ctx context.Context, term string) ([]TextEntry, error) {
	query := `
		SELECT ` + textColumns + `
		FROM texts
		WHERE key ILIKE $1 OR value_ru ILIKE $1
		   OR value_en ILIKE $1 OR description ILIKE $1
		ORDER BY key`

	rows, err := db.q.Query(ctx, query, "%"+term+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTexts(rows)
}

func (db *DB) ListTextsByCategory(ctx context.Context, category string) ([]TextEntry, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+textColumns+` FROM texts WHERE category = $1 ORDER BY key`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTexts(rows)
}

func collectTexts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]TextEntry, error) {
	var out []TextEntry
	for rows.Next() {
		var t TextEntry
		if err := rows.Scan(&t.Key, &t.ValueRU, &t.ValueEN, &t.Category, &t.Description, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
