package catalog

import (
	"context"
	"strings"

	"lessonbot/database"
	"lessonbot/errs"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MaxPrice          = 2500
)

type Store interface {
	ListLessons(ctx context.Context, page, perPage int, f database.LessonFilter) ([]database.Lesson, int, error)
	GetLesson(ctx context.Context, id int, includeInactive bool) (*database.Lesson, error)
	CreateLesson(ctx context.Context, l *database.Lesson) (*database.Lesson, error)
	UpdateLessonTitle(ctx context.Context, id int, title string) error
	UpdateLessonDescription(ctx context.Context, id int, description string) error
	UpdateLessonPrice(ctx context.Context, id, price int) error
	UpdateLessonCategory(ctx context.Context, id int, categoryID *int, name *string) error
	UpdateLessonMedia(ctx context.Context, id int, contentType database.ContentType, fileHandle *string, durationSec *int) error
	SetLessonActive(ctx context.Context, id int, active bool) error
	IncrementLessonViews(ctx context.Context, id int) error
	HardDeleteLessonTx(ctx context.Context, lessonID int, cancelPurchases bool) error

	GetCategory(ctx context.Context, id int) (*database.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*database.Category, error)
	CreateCategory(ctx context.Context, name string, description *string) (*database.Category, error)
	SetCategoryActive(ctx context.Context, id int, active bool) error
	UpdateCategory(ctx context.Context, id int, name string, description *string) (*database.Category, error)
	ListCategories(ctx context.Context, includeInactive bool) ([]database.Category, error)
	CategoryLessonCounts(ctx context.Context) ([]database.CategoryCount, error)
	DeleteCategory(ctx context.Context, id int) error

	CountCompletedPurchasesForLesson(ctx context.Context, lessonID int) (int, error)
	HasCompletedPurchase(ctx context.Context, userID int64, lessonID int) (bool, error)
	ListUserPurchases(ctx context.Context, userID int64) ([]database.Purchase, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type ListOptions struct {
	CategoryID      *int
	IncludeInactive bool
	Search          string
	Sort            string
}

func (s *Service) List(ctx context.Context, page, perPage int, opts ListOptions) ([]database.Lesson, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	return s.store.ListLessons(ctx, page, perPage, database.LessonFilter{
		CategoryID:      opts.CategoryID,
		IncludeInactive: opts.IncludeInactive,
		Search:          opts.Search,
		Sort:            opts.Sort,
	})
}

func (s *Service) Get(ctx context.Context, id int, includeInactive bool) (*database.Lesson, error) {
	l, err := s.store.GetLesson(ctx, id, includeInactive)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "lesson not found")
	}
	return l, err
}

type CreateLessonInput struct {
	Title        string
	Description  string
	Price        int
	ContentType  database.ContentType
	FileHandle   *string
	DurationSec  *int
	CategoryName string
}

func (s *Service) Create(ctx context.Context, in CreateLessonInput) (*database.Lesson, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if !database.ValidContentType(in.ContentType) {
		return nil, errs.Newf(errs.Validation, "unknown content type %q", in.ContentType)
	}
	if in.ContentType != database.ContentText && (in.FileHandle == nil || *in.FileHandle == "") {
		return nil, errs.New(errs.Validation, "file handle is required for media lessons")
	}
	if strings.TrimSpace(in.CategoryName) == "" {
		return nil, errs.New(errs.Validation, "category is required")
	}

	cat, err := s.FindOrCreateCategory(ctx, in.CategoryName)
	if err != nil {
		return nil, err
	}

	lesson := &database.Lesson{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ContentType: in.ContentType,
		FileHandle:  in.FileHandle,
		DurationSec: in.DurationSec,
		IsFree:      in.Price == 0,
		CategoryID:  &cat.ID,
		Category:    &cat.Name,
	}
	return s.store.CreateLesson(ctx, lesson)
}

// FindOrCreateCategory matches the trimmed name exactly and reactivates
// an inactive match instead of duplicating it.
func (s *Service) FindOrCreateCategory(ctx context.Context, name string) (*database.Category, error) {
	name = strings.TrimSpace(name)
	cat, err := s.store.GetCategoryByName(ctx, name)
	if err == nil {
		if !cat.IsActive {
			if err := s.store.SetCategoryActive(ctx, cat.ID, true); err != nil {
				return nil, err
			}
			cat.IsActive = true
		}
		return cat, nil
	}
	if !database.IsNoRows(err) {
		return nil, err
	}
	return s.store.CreateCategory(ctx, name, nil)
}

func (s *Service) UpdateTitle(ctx context.Context, id int, title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	return s.store.UpdateLessonTitle(ctx, id, strings.TrimSpace(title))
}

func (s *Service) UpdateDescription(ctx context.Context, id int, description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	return s.store.UpdateLessonDescription(ctx, id, strings.TrimSpace(description))
}

// UpdatePrice recomputes is_free from the new price.
func (s *Service) UpdatePrice(ctx context.Context, id, price int) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	return s.store.UpdateLessonPrice(ctx, id, price)
}

func (s *Service) UpdateCategory(ctx context.Context, id int, categoryName string) error {
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	cat, err := s.FindOrCreateCategory(ctx, categoryName)
	if err != nil {
		return err
	}
	return s.store.UpdateLessonCategory(ctx, id, &cat.ID, &cat.Name)
}

func (s *Service) UpdateMedia(ctx context.Context, id int, contentType database.ContentType, fileHandle *string, durationSec *int) error {
	if !database.ValidContentType(contentType) {
		return errs.Newf(errs.Validation, "unknown content type %q", contentType)
	}
	if contentType != database.ContentText && (fileHandle == nil || *fileHandle == "") {
		return errs.New(errs.Validation, "file handle is required for media lessons")
	}
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	return s.store.UpdateLessonMedia(ctx, id, contentType, fileHandle, durationSec)
}

func (s *Service) SetActive(ctx context.Context, id int, active bool) error {
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	return s.store.SetLessonActive(ctx, id, active)
}

// IncrementViews is fire-and-forget; callers ignore the error.
func (s *Service) IncrementViews(ctx context.Context, id int) error {
	return s.store.IncrementLessonViews(ctx, id)
}

// CheckEntitlement: free lessons are open to everyone, paid ones need a
// completed purchase.
func (s *Service) CheckEntitlement(ctx context.Context, userID int64, lessonID int) (bool, error) {
	lesson, err := s.Get(ctx, lessonID, true)
	if err != nil {
		return false, err
	}
	if lesson.IsFree {
		return true, nil
	}
	return s.store.HasCompletedPurchase(ctx, userID, lessonID)
}

// UserPurchases lists the user's completed purchases, newest first.
func (s *Service) UserPurchases(ctx context.Context, userID int64) ([]database.Purchase, error) {
	return s.store.ListUserPurchases(ctx, userID)
}

// CanDelete reports whether the lesson can be hard-deleted outright.
func (s *Service) CanDelete(ctx context.Context, id int) (bool, string, error) {
	n, err := s.store.CountCompletedPurchasesForLesson(ctx, id)
	if err != nil {
		return false, "", err
	}
	if n > 0 {
		return false, "lesson has completed purchases", nil
	}
	return true, "", nil
}

func (s *Service) SoftDelete(ctx context.Context, id int) error {
	return s.SetActive(ctx, id, false)
}

// HardDelete is irreversible. Without force it fails while completed
// purchases reference the lesson; with force those purchases are
// cancelled first.
func (s *Service) HardDelete(ctx context.Context, id int, force bool) error {
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	ok, reason, err := s.CanDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok && !force {
		return errs.New(errs.Conflict, reason)
	}
	return s.store.HardDeleteLessonTx(ctx, id, !ok)
}

func (s *Service) Categories(ctx context.Context, includeInactive bool) ([]database.Category, error) {
	return s.store.ListCategories(ctx, includeInactive)
}

func (s *Service) CategoryCounts(ctx context.Context) ([]database.CategoryCount, error) {
	return s.store.CategoryLessonCounts(ctx)
}

func (s *Service) RenameCategory(ctx context.Context, id int, name string, description *string) (*database.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.New(errs.Validation, "category name is required")
	}
	cat, err := s.store.UpdateCategory(ctx, id, name, description)
	if database.IsUniqueViolation(err) {
		return nil, errs.Newf(errs.Conflict, "category %q already exists", name)
	}
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "category not found")
	}
	return cat, err
}

func (s *Service) DeleteCategory(ctx context.Context, id int) error {
	if _, err := s.store.GetCategory(ctx, id); database.IsNoRows(err) {
		return errs.New(errs.NotFound, "category not found")
	} else if err != nil {
		return err
	}
	return s.store.DeleteCategory(ctx, id)
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errs.New(errs.Validation, "title is required")
	}
	if len([]rune(title)) > MaxTitleLen {
		return errs.Newf(errs.Validation, "title longer than %d characters", MaxTitleLen)
	}
	return nil
}

func validateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return errs.New(errs.Validation, "description is required")
	}
	if len([]rune(description)) > MaxDescriptionLen {
		return errs.Newf(errs.Validation, "description longer than %d characters", MaxDescriptionLen)
	}
	return nil
}

func validatePrice(price int) error {
	if price < 0 || price > MaxPrice {
		return errs.Newf(errs.Validation, "price must be between 0 and %d", MaxPrice)
	}
	return nil
}
