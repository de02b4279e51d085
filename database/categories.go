package database

import "context"

const categoryColumns = `id, name, description, is_active, created_at, updated_at`

func (db *DB) scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (db *DB) GetCategory(ctx context.Context, id int) (*Category, error) {
	return db.scanCategory(db.q.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

// GetCategoryByName matches the trimmed name exactly, case-sensitive.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	return db.scanCategory(db.q.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
}

func (db *DB) CreateCategory(ctx context.Context, name string, description *string) (*Category, error) {
	return db.scanCategory(db.q.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING `+categoryColumns, name, description))
}

func (db *DB) SetCategoryActive(ctx context.Context, id int, active bool) error {
	_, err := db.q.Exec(ctx,
		`UPDATE categories SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

func (db *DB) UpdateCategory(ctx context.Context, id int, name string, description *string) (*Category, error) {
	return db.scanCategory(db.q.QueryRow(ctx, `
		UPDATE categories
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+categoryColumns, name, description, id))
}

func (db *DB) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	rows, err := db.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type CategoryCount struct {
	CategoryID int
	Name       string
	Lessons    int
}

// CategoryLessonCounts counts active lessons per category, joining on
// both category_id and the legacy category name column.
func (db *DB) CategoryLessonCounts(ctx context.Context) ([]CategoryCount, error) {
	query := `
		SELECT c.id, c.name, COUNT(l.id)
		FROM categories c
		LEFT JOIN lessons l
		  ON (l.category_id = c.id OR l.category = c.name) AND l.is_active = true
		WHERE c.is_active = true
		GROUP BY c.id, c.name
		ORDER BY c.name`

	rows, err := db.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.CategoryID, &cc.Name, &cc.Lessons); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// DeleteCategory removes the category after detaching its lessons.
func (db *DB) DeleteCategory(ctx context.Context, id int) error {
	if _, err := db.q.Exec(ctx,
		`UPDATE lessons SET category_id = NULL, updated_at = NOW() WHERE category_id = $1`, id); err != nil {
		return err
	}
	_, err := db.q.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}
