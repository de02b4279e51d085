// Package texts is the keyed catalog of user-facing strings with a
// Russian fallback. Reads are memoized; every write invalidates the
// cache so no in-process copy is ever authoritative.
package texts

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"lessonbot/database"
	"lessonbot/errs"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var validCategories = map[string]bool{
	"welcome": true,
	"buttons": true,
	"errors":  true,
	"success": true,
	"catalog": true,
	"payment": true,
	"support": true,
	"admin":   true,
}

// Categories returns the known text categories in sorted order.
func Categories() []string {
	out := make([]string, 0, len(validCategories))
	for c := range validCategories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type Store interface {
	GetText(ctx context.Context, key string) (*database.TextEntry, error)
	UpsertText(ctx context.Context, t *database.TextEntry) (*database.TextEntry, error)
	InsertTextIfMissing(ctx context.Context, t *database.TextEntry) error
	DeleteText(ctx context.Context, key string) error
	SearchTexts(ctx context.Context, term string) ([]database.TextEntry, error)
	ListTextsByCategory(ctx context.Context, category string) ([]database.TextEntry, error)
}

type Service struct {
	store Store

	mu    sync.RWMutex
	cache map[string]*database.TextEntry
}

func New(store Store) *Service {
	return &Service{store: store, cache: make(map[string]*database.TextEntry)}
}

// Get returns the value for lang, falling back to Russian. Empty
// string means the key is absent.
func (s *Service) Get(ctx context.Context, key, lang string) string {
	entry := s.lookup(ctx, key)
	if entry == nil {
		return ""
	}
	if lang == "en" && entry.ValueEN != nil && *entry.ValueEN != "" {
		return *entry.ValueEN
	}
	return entry.ValueRU
}

// GetOr returns the catalog value or def when the key is missing.
func (s *Service) GetOr(ctx context.Context, key, lang, def string) string {
	if v := s.Get(ctx, key, lang); v != "" {
		return v
	}
	return def
}

// Entry returns the full catalog row, or nil when the key is unknown.
func (s *Service) Entry(ctx context.Context, key string) (*database.TextEntry, error) {
	entry, err := s.store.GetText(ctx, key)
	if err != nil {
		if database.IsNoRows(err) || errs.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// UpsertLang writes one language of a text pair, preserving the other
// side. The Russian value is the fallback for every reader, so a key
// must receive it before an English value.
func (s *Service) UpsertLang(ctx context.Context, key, lang, value string) (*database.TextEntry, error) {
	if lang != "ru" && lang != "en" {
		return nil, errs.Newf(errs.Validation, "unknown language %q", lang)
	}

	existing, err := s.Entry(ctx, key)
	if err != nil {
		return nil, err
	}

	valueRU := value
	var valueEN *string
	category := "admin"
	var description *string
	if existing != nil {
		valueRU = existing.ValueRU
		valueEN = existing.ValueEN
		category = existing.Category
		description = existing.Description
	}
	if lang == "en" {
		if existing == nil {
			return nil, errs.Newf(errs.Validation, "set the russian value for %s first", key)
		}
		valueEN = &value
	} else {
		valueRU = value
	}
	return s.Upsert(ctx, key, valueRU, valueEN, category, description)
}

func (s *Service) lookup(ctx context.Context, key string) *database.TextEntry {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	entry, err := s.store.GetText(ctx, key)
	if err != nil {
		// cache misses only; absent keys are re-checked on demand
		return nil
	}

	s.mu.Lock()
	s.cache[key] = entry
	s.mu.Unlock()
	return entry
}

func (s *Service) Upsert(ctx context.Context, key, valueRU string, valueEN *string, category string, description *string) (*database.TextEntry, error) {
	if !keyPattern.MatchString(key) {
		return nil, errs.Newf(errs.Validation, "invalid text key %q", key)
	}
	if !validCategories[category] {
		return nil, errs.Newf(errs.Validation, "unknown text category %q", category)
	}
	if valueRU == "" {
		return nil, errs.New(errs.Validation, "value_ru is required")
	}

	entry, err := s.store.UpsertText(ctx, &database.TextEntry{
		Key:         key,
		ValueRU:     valueRU,
		ValueEN:     valueEN,
		Category:    category,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(key)
	return entry, nil
}

// Delete is idempotent: removing an absent key succeeds.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.store.DeleteText(ctx, key); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

func (s *Service) Search(ctx context.Context, term string) ([]database.TextEntry, error) {
	return s.store.SearchTexts(ctx, term)
}

func (s *Service) ListByCategory(ctx context.Context, category string) ([]database.TextEntry, error) {
	return s.store.ListTextsByCategory(ctx, category)
}

// InitializeDefaults seeds missing default keys and never overwrites
// existing values, so it is safe to run on every start.
func (s *Service) InitializeDefaults(ctx context.Context) error {
	for i := range defaults {
		if err := s.store.InsertTextIfMissing(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
