package identity

import (
	"context"
	"strings"

	"lessonbot/database"
	"lessonbot/errs"
)

type Store interface {
	GetOrCreateUser(ctx context.Context, id int64, username *string, fullName string) (*database.User, error)
	GetUser(ctx context.Context, id int64) (*database.User, error)
	SetUserLanguage(ctx context.Context, id int64, lang string) (bool, error)
	SetUserActive(ctx context.Context, id int64, active bool) (bool, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	ListActiveAdminIDs(ctx context.Context) ([]int64, error)
	UpsertAdmin(ctx context.Context, userID int64, username *string, permissions string) error
	TouchAdminLogin(ctx context.Context, userID int64) error
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// GetOrCreate registers the user on first sight and touches activity
// otherwise. Username and full name follow the platform profile.
func (s *Service) GetOrCreate(ctx context.Context, id int64, username, fullName string) (*database.User, error) {
	var uname *string
	if username != "" {
		uname = &username
	}
	return s.store.GetOrCreateUser(ctx, id, uname, fullName)
}

func (s *Service) Get(ctx context.Context, id int64) (*database.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "user not found")
	}
	return u, err
}

func (s *Service) SetLanguage(ctx context.Context, id int64, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "ru" && lang != "en" {
		return errs.Newf(errs.Validation, "unsupported language %q", lang)
	}
	ok, err := s.store.SetUserLanguage(ctx, id, lang)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.NotFound, "user not found")
	}
	return nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	ok, err := s.store.SetUserActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.NotFound, "user not found")
	}
	return nil
}

func (s *Service) IsAdmin(ctx context.Context, id int64) (bool, error) {
	return s.store.IsAdmin(ctx, id)
}

func (s *Service) ActiveAdmins(ctx context.Context) ([]int64, error) {
	return s.store.ListActiveAdminIDs(ctx)
}

func (s *Service) TouchAdminLogin(ctx context.Context, id int64) error {
	return s.store.TouchAdminLogin(ctx, id)
}

// SeedAdmins provisions admin rows for the configured id list.
func (s *Service) SeedAdmins(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := s.store.UpsertAdmin(ctx, id, nil, "all"); err != nil {
			return err
		}
	}
	return nil
}
