package database

import (
	"context"
	"fmt"
	"strings"
)

const lessonColumns = `id, title, description, price, content_type, file_handle,
	duration_sec, is_active, is_free, category_id, category, views, created_at, updated_at`

func scanLesson(row interface{ Scan(...any) error }) (*Lesson, error) {
	var l Lesson
	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Price, &l.ContentType, &l.FileHandle,
		&l.DurationSec, &l.IsActive, &l.IsFree, &l.CategoryID, &l.Category,
		&l.Views, &l.CreatedAt, &l.UpdatedAt,
	)
	return &l, err
}

type LessonFilter struct {
	CategoryID      *int
	IncludeInactive bool
	Search          string
	Sort            string // "created", "price", "popular"
}

func (db *DB) ListLessons(ctx context.Context, page, perPage int, f LessonFilter) ([]Lesson, int, error) {
	var conds []string
	var args []any

	if !f.IncludeInactive {
		conds = append(conds, "is_active = true")
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.q.QueryRow(ctx, "SELECT COUNT(*) FROM lessons"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	switch f.Sort {
	case "price":
		order = "price ASC, created_at DESC"
	case "popular":
		order = "views DESC, created_at DESC"
	}

	if page < 1 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf("SELECT %s FROM lessons%s ORDER BY %s LIMIT $%d OFFSET $%d",
		lessonColumns, where, order, len(args)-1, len(args))

	rows, err := db.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Description, &l.Price, &l.ContentType, &l.FileHandle,
			&l.DurationSec, &l.IsActive, &l.IsFree, &l.CategoryID, &l.Category,
			&l.Views, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (db *DB) GetLesson(ctx context.Context, id int, includeInactive bool) (*Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	if !includeInactive {
		query += ` AND is_active = true`
	}
	return scanLesson(db.q.QueryRow(ctx, query, id))
}

func (db *DB) CreateLesson(ctx context.Context, l *Lesson) (*Lesson, error) {
	query := `
		INSERT INTO lessons (title, description, price, content_type, file_handle,
		                     duration_sec, is_free, category_id, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + lessonColumns
	return scanLesson(db.q.QueryRow(ctx, query,
		l.Title, l.Description, l.Price, l.ContentType, l.FileHandle,
		l.DurationSec, l.IsFree, l.CategoryID, l.Category))
}

func (db *DB) UpdateLessonTitle(ctx context.Context, id int, title string) error {
	_, err := db.q.Exec(ctx,
		`UPDATE lessons SET title = $1, updated_at = NOW() WHERE id = $2`, title, id)
	return err
}

func (db *DB) UpdateLessonDescription(ctx context.Context, id int, description string) error {
	_, err := db.q.Exec(ctx,
		`UPDATE lessons SET description = $1, updated_at = NOW() WHERE id = $2`, description, id)
	return err
}

// UpdateLessonPrice recomputes is_free from the new price.
func (db *DB) UpdateLessonPrice(ctx context.Context, id, price int) error {
	_, err := db.q.Exec(ctx,
		`UPDATE lessons SET price = $1, is_free = ($1 = 0), updated_at = NOW() WHERE id = $2`, price, id)
	return err
}

func (db *DB) UpdateLessonCategory(ctx context.Context, id int, categoryID *int, name *string) error {
	_, err := db.q.Exec(ctx,
		`UPDATE lessons SET category_id = $1, category = $2, updated_at = NOW() WHERE id = $3`,
		categoryID, name, id)
	return err
}

func (db *DB) UpdateLessonMedia(ctx context.Context, id int, contentType ContentType, fileHandle *string, durationSec *int) error {
	_, err := db.q.Exec(ctx, `
		UPDATE lessons
		SET content_type = $1, file_handle = $2, duration_sec = $3, updated_at = NOW()
		WHERE id = $4`, contentType, fileHandle, durationSec, id)
	return err
}

func (db *DB) SetLessonActive(ctx context.Context, id int, active bool) error {
	_, err := db.q.Exec(ctx,
		`UPDATE lessons SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

func (db *DB) IncrementLessonViews(ctx context.Context, id int) error {
	_, err := db.q.Exec(ctx, `UPDATE lessons SET views = views + 1 WHERE id = $1`, id)
	return err
}

func (db *DB) DeleteLesson(ctx context.Context, id int) error {
	_, err := db.q.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	return err
}

func (db *DB) CountLessons(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM lessons`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	var n int
	err := db.q.QueryRow(ctx, query).Scan(&n)
	return n, err
}
