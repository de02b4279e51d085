package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonbot/database"
	"lessonbot/errs"
)

type mockStore struct {
	lessons        map[int]*database.Lesson
	categories     map[int]*database.Category
	purchaseCounts map[int]int
	owned          map[int64]map[int]bool
	purchases      map[int64][]database.Purchase

	nextLessonID   int
	nextCategoryID int
	deleted        []int
	deleteForced   bool
}

func newMockStore() *mockStore {
	return &mockStore{
		lessons:        map[int]*database.Lesson{},
		categories:     map[int]*database.Category{},
		purchaseCounts: map[int]int{},
		owned:          map[int64]map[int]bool{},
		purchases:      map[int64][]database.Purchase{},
		nextLessonID:   1,
		nextCategoryID: 1,
	}
}

func (m *mockStore) ListLessons(_ context.Context, page, perPage int, f database.LessonFilter) ([]database.Lesson, int, error) {
	var out []database.Lesson
	for _, l := range m.lessons {
		if !f.IncludeInactive && !l.IsActive {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *mockStore) GetLesson(_ context.Context, id int, includeInactive bool) (*database.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok || (!includeInactive && !l.IsActive) {
		return nil, pgx.ErrNoRows
	}
	return l, nil
}

func (m *mockStore) CreateLesson(_ context.Context, l *database.Lesson) (*database.Lesson, error) {
	l.ID = m.nextLessonID
	m.nextLessonID++
	l.IsActive = true
	m.lessons[l.ID] = l
	return l, nil
}

func (m *mockStore) UpdateLessonTitle(_ context.Context, id int, title string) error {
	m.lessons[id].Title = title
	return nil
}

func (m *mockStore) UpdateLessonDescription(_ context.Context, id int, description string) error {
	m.lessons[id].Description = description
	return nil
}

func (m *mockStore) UpdateLessonPrice(_ context.Context, id, price int) error {
	m.lessons[id].Price = price
	m.lessons[id].IsFree = price == 0
	return nil
}

func (m *mockStore) UpdateLessonCategory(_ context.Context, id int, categoryID *int, name *string) error {
	m.lessons[id].CategoryID = categoryID
	m.lessons[id].Category = name
	return nil
}

func (m *mockStore) UpdateLessonMedia(_ context.Context, id int, ct database.ContentType, fh *string, dur *int) error {
	m.lessons[id].ContentType = ct
	m.lessons[id].FileHandle = fh
	m.lessons[id].DurationSec = dur
	return nil
}

func (m *mockStore) SetLessonActive(_ context.Context, id int, active bool) error {
	m.lessons[id].IsActive = active
	return nil
}

func (m *mockStore) IncrementLessonViews(_ context.Context, id int) error {
	m.lessons[id].Views++
	return nil
}

func (m *mockStore) HardDeleteLessonTx(_ context.Context, lessonID int, cancelPurchases bool) error {
	for userID, list := range m.purchases {
		for i := range list {
			if list[i].LessonID == nil || *list[i].LessonID != lessonID {
				continue
			}
			if cancelPurchases {
				list[i].Status = database.PurchaseCancelled
			}
			list[i].LessonID = nil
		}
		m.purchases[userID] = list
	}
	delete(m.lessons, lessonID)
	m.deleted = append(m.deleted, lessonID)
	m.deleteForced = cancelPurchases
	return nil
}

func (m *mockStore) GetCategory(_ context.Context, id int) (*database.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockStore) GetCategoryByName(_ context.Context, name string) (*database.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateCategory(_ context.Context, name string, description *string) (*database.Category, error) {
	c := &database.Category{ID: m.nextCategoryID, Name: name, Description: description, IsActive: true}
	m.nextCategoryID++
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockStore) SetCategoryActive(_ context.Context, id int, active bool) error {
	m.categories[id].IsActive = active
	return nil
}

func (m *mockStore) UpdateCategory(_ context.Context, id int, name string, description *string) (*database.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	for _, other := range m.categories {
		if other.ID != id && other.Name == name {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	c.Name = name
	return c, nil
}

func (m *mockStore) ListCategories(_ context.Context, includeInactive bool) ([]database.Category, error) {
	var out []database.Category
	for _, c := range m.categories {
		if !includeInactive && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockStore) CategoryLessonCounts(_ context.Context) ([]database.CategoryCount, error) {
	return nil, nil
}

func (m *mockStore) DeleteCategory(_ context.Context, id int) error {
	delete(m.categories, id)
	return nil
}

func (m *mockStore) CountCompletedPurchasesForLesson(_ context.Context, lessonID int) (int, error) {
	return m.purchaseCounts[lessonID], nil
}

func (m *mockStore) HasCompletedPurchase(_ context.Context, userID int64, lessonID int) (bool, error) {
	return m.owned[userID][lessonID], nil
}

func (m *mockStore) ListUserPurchases(_ context.Context, userID int64) ([]database.Purchase, error) {
	return m.purchases[userID], nil
}

func validInput() CreateLessonInput {
	fileID := "file-abc"
	return CreateLessonInput{
		Title:        "Основы Go",
		Description:  "Вводный урок",
		Price:        100,
		ContentType:  database.ContentVideo,
		FileHandle:   &fileID,
		CategoryName: "Программирование",
	}
}

func TestCreateLesson(t *testing.T) {
	store := newMockStore()
	svc := New(store)

	lesson, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "Основы Go", lesson.Title)
	assert.False(t, lesson.IsFree)
	require.NotNil(t, lesson.CategoryID)
	assert.Equal(t, "Программирование", *lesson.Category)
}

func TestCreateLessonValidation(t *testing.T) {
	svc := New(newMockStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateLessonInput)
	}{
		{"empty title", func(in *CreateLessonInput) { in.Title = "  " }},
		{"title too long", func(in *CreateLessonInput) { in.Title = strings.Repeat("я", MaxTitleLen+1) }},
		{"description too long", func(in *CreateLessonInput) { in.Description = strings.Repeat("я", MaxDescriptionLen+1) }},
		{"negative price", func(in *CreateLessonInput) { in.Price = -1 }},
		{"price over cap", func(in *CreateLessonInput) { in.Price = MaxPrice + 1 }},
		{"bad content type", func(in *CreateLessonInput) { in.ContentType = "hologram" }},
		{"media without file", func(in *CreateLessonInput) { in.FileHandle = nil }},
		{"no category", func(in *CreateLessonInput) { in.CategoryName = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.True(t, errs.Is(err, errs.Validation), "got %v", err)
		})
	}
}

func TestCreateLessonBoundaryLengthsPass(t *testing.T) {
	svc := New(newMockStore())
	in := validInput()
	in.Title = strings.Repeat("я", MaxTitleLen)
	in.Description = strings.Repeat("я", MaxDescriptionLen)
	in.Price = MaxPrice

	_, err := svc.Create(context.Background(), in)
	assert.NoError(t, err)
}

func TestCreateFreeLesson(t *testing.T) {
	svc := New(newMockStore())
	in := validInput()
	in.Price = 0
	in.ContentType = database.ContentText
	in.FileHandle = nil

	lesson, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, lesson.IsFree)
}

func TestFindOrCreateCategoryReactivates(t *testing.T) {
	store := newMockStore()
	store.categories[1] = &database.Category{ID: 1, Name: "Архив", IsActive: false}
	svc := New(store)

	cat, err := svc.FindOrCreateCategory(context.Background(), " Архив ")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.ID)
	assert.True(t, cat.IsActive)
	assert.Len(t, store.categories, 1, "no duplicate created")
}

func TestUpdatePriceRecomputesFree(t *testing.T) {
	store := newMockStore()
	svc := New(store)
	lesson, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrice(context.Background(), lesson.ID, 0))
	assert.True(t, store.lessons[lesson.ID].IsFree)
}

func TestUpdateUnknownLesson(t *testing.T) {
	svc := New(newMockStore())
	err := svc.UpdateTitle(context.Background(), 404, "Заголовок")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestCheckEntitlement(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = &database.Lesson{ID: 1, Price: 0, IsFree: true, IsActive: true}
	store.lessons[2] = &database.Lesson{ID: 2, Price: 100, IsActive: true}
	store.owned[5] = map[int]bool{2: true}
	svc := New(store)
	ctx := context.Background()

	ok, err := svc.CheckEntitlement(ctx, 9, 1)
	require.NoError(t, err)
	assert.True(t, ok, "free lessons are open to everyone")

	ok, err = svc.CheckEntitlement(ctx, 9, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckEntitlement(ctx, 5, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHardDeleteWithoutPurchases(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = &database.Lesson{ID: 1, IsActive: true}
	svc := New(store)

	require.NoError(t, svc.HardDelete(context.Background(), 1, false))
	assert.Equal(t, []int{1}, store.deleted)
	assert.False(t, store.deleteForced)
}

func TestHardDeleteBlockedByPurchases(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = &database.Lesson{ID: 1, IsActive: true}
	store.purchaseCounts[1] = 3
	svc := New(store)

	err := svc.HardDelete(context.Background(), 1, false)
	assert.True(t, errs.Is(err, errs.Conflict))
	assert.Empty(t, store.deleted)
}

func TestHardDeleteForcedCancelsPurchases(t *testing.T) {
	store := newMockStore()
	store.lessons[1] = &database.Lesson{ID: 1, IsActive: true}
	store.purchaseCounts[1] = 3
	svc := New(store)

	require.NoError(t, svc.HardDelete(context.Background(), 1, true))
	assert.Equal(t, []int{1}, store.deleted)
	assert.True(t, store.deleteForced)
}

func TestHardDeleteForcedKeepsPurchaseRows(t *testing.T) {
	store := newMockStore()
	store.lessons[11] = &database.Lesson{ID: 11, IsActive: true, Price: 100}
	store.purchaseCounts[11] = 1
	lid := 11
	store.purchases[5] = []database.Purchase{{
		ID: 3, UserID: 5, LessonID: &lid, Amount: 100,
		Status: database.PurchaseCompleted,
	}}
	svc := New(store)

	require.NoError(t, svc.HardDelete(context.Background(), 11, true))

	// The lesson is gone but the payment record survives, detached and
	// cancelled.
	rows := store.purchases[5]
	require.Len(t, rows, 1)
	assert.Equal(t, database.PurchaseCancelled, rows[0].Status)
	assert.Nil(t, rows[0].LessonID)
}

func TestRenameCategoryConflict(t *testing.T) {
	store := newMockStore()
	store.categories[1] = &database.Category{ID: 1, Name: "Go", IsActive: true}
	store.categories[2] = &database.Category{ID: 2, Name: "Rust", IsActive: true}
	svc := New(store)

	_, err := svc.RenameCategory(context.Background(), 2, "Go", nil)
	assert.True(t, errs.Is(err, errs.Conflict))
}

func TestRenameCategoryEmptyName(t *testing.T) {
	svc := New(newMockStore())
	_, err := svc.RenameCategory(context.Background(), 1, "  ", nil)
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestDeleteUnknownCategory(t *testing.T) {
	svc := New(newMockStore())
	err := svc.DeleteCategory(context.Background(), 404)
	assert.True(t, errs.Is(err, errs.NotFound))
}
