// Package broadcast fans a message out to a user segment with fixed
// pacing. Only aggregate tallies are kept; there is no per-recipient
// delivery history.
package broadcast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lessonbot/database"
	"lessonbot/errs"
	"lessonbot/telegram"
)

type Audience string

const (
	AudienceAll    Audience = "all"
	AudienceActive Audience = "active"
	AudienceBuyers Audience = "buyers"
)

func ValidAudience(a Audience) bool {
	return a == AudienceAll || a == AudienceActive || a == AudienceBuyers
}

type Store interface {
	InsertBroadcast(ctx context.Context, adminID int64, text string, mediaType, fileHandle *string) (*database.Broadcast, error)
	GetBroadcast(ctx context.Context, id int) (*database.Broadcast, error)
	GetBroadcastStatus(ctx context.Context, id int) (database.BroadcastStatus, error)
	ClaimBroadcastSending(ctx context.Context, id int) (bool, error)
	CompleteBroadcast(ctx context.Context, id, totalTargets, successCount int) error
	FailBroadcast(ctx context.Context, id int) error
	CancelBroadcast(ctx context.Context, id int) (bool, error)
	DeleteBroadcast(ctx context.Context, id int) error
	ListBroadcasts(ctx context.Context, limit int) ([]database.Broadcast, error)
	ListAudienceIDs(ctx context.Context, audience string) ([]int64, error)
}

// SendFunc delivers one broadcast message to one recipient.
type SendFunc func(ctx context.Context, chatID int64, mediaType, fileHandle, text string) error

type Service struct {
	store  Store
	send   SendFunc
	pacing time.Duration
	log    *zap.Logger
}

// NewEgress adapts the telegram client to the fan-out's send surface.
func NewEgress(c *telegram.Client) SendFunc {
	return func(ctx context.Context, chatID int64, mediaType, fileHandle, text string) error {
		switch mediaType {
		case "photo":
			return c.SendPhoto(ctx, chatID, fileHandle, text)
		case "video":
			return c.SendVideo(ctx, chatID, fileHandle, text)
		case "document":
			return c.SendDocument(ctx, chatID, fileHandle, text)
		default:
			return c.SendText(ctx, chatID, text, nil)
		}
	}
}

func New(store Store, send SendFunc, pacing time.Duration, log *zap.Logger) *Service {
	if pacing <= 0 {
		pacing = 50 * time.Millisecond
	}
	return &Service{store: store, send: send, pacing: pacing, log: log}
}

func (s *Service) Create(ctx context.Context, adminID int64, text string, mediaType, fileHandle *string) (*database.Broadcast, error) {
	if text == "" && mediaType == nil {
		return nil, errs.New(errs.Validation, "broadcast needs text or media")
	}
	if mediaType != nil {
		switch *mediaType {
		case "photo", "video", "document":
			if fileHandle == nil || *fileHandle == "" {
				return nil, errs.New(errs.Validation, "media broadcast needs a file")
			}
		default:
			return nil, errs.Newf(errs.Validation, "unsupported media type %q", *mediaType)
		}
	}
	return s.store.InsertBroadcast(ctx, adminID, text, mediaType, fileHandle)
}

func (s *Service) Get(ctx context.Context, id int) (*database.Broadcast, error) {
	b, err := s.store.GetBroadcast(ctx, id)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "broadcast not found")
	}
	return b, err
}

func (s *Service) List(ctx context.Context, limit int) ([]database.Broadcast, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListBroadcasts(ctx, limit)
}

// Cancel only works while the broadcast is still pending; the send job
// observes the cancelled row and never starts.
func (s *Service) Cancel(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	ok, err := s.store.CancelBroadcast(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "broadcast is no longer pending")
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteBroadcast(ctx, id)
}

// Send claims the broadcast and runs the fan-out. The pending→sending
// transition guards against two workers running the same broadcast.
// Designed to run on a background goroutine.
func (s *Service) Send(ctx context.Context, id int, audience Audience) error {
	if !ValidAudience(audience) {
		return errs.Newf(errs.Validation, "unknown audience %q", audience)
	}

	claimed, err := s.store.ClaimBroadcastSending(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		// cancelled or already running elsewhere
		return errs.New(errs.Conflict, "broadcast is not pending")
	}

	b, err := s.store.GetBroadcast(ctx, id)
	if err != nil {
		s.failQuietly(ctx, id)
		return err
	}

	targets, err := s.store.ListAudienceIDs(ctx, string(audience))
	if err != nil {
		s.failQuietly(ctx, id)
		return err
	}

	mediaType, fileHandle := "", ""
	if b.MediaType != nil {
		mediaType = *b.MediaType
	}
	if b.FileHandle != nil {
		fileHandle = *b.FileHandle
	}

	successes := 0
	for i, userID := range targets {
		select {
		case <-ctx.Done():
			s.failQuietly(context.WithoutCancel(ctx), id)
			return ctx.Err()
		default:
		}

		// Cancellation is cooperative: the row leaving sending stops
		// the fan-out at the next iteration boundary.
		status, err := s.store.GetBroadcastStatus(ctx, id)
		if err != nil {
			s.failQuietly(context.WithoutCancel(ctx), id)
			return err
		}
		if status != database.BroadcastSending {
			s.log.Info("broadcast stopped mid-send", zap.Int("broadcast", id),
				zap.String("status", string(status)), zap.Int("delivered", successes))
			return errs.Newf(errs.Conflict, "broadcast left sending state: %s", status)
		}

		if err := s.send(ctx, userID, mediaType, fileHandle, b.Text); err != nil {
			if telegram.IsPermanent(err) {
				s.log.Debug("broadcast recipient unreachable",
					zap.Int("broadcast", id), zap.Int64("user", userID),
					zap.String("class", telegram.Classify(err).String()))
			} else {
				s.log.Warn("broadcast send failed",
					zap.Int("broadcast", id), zap.Int64("user", userID), zap.Error(err))
			}
		} else {
			successes++
		}

		if i < len(targets)-1 {
			time.Sleep(s.pacing)
		}
	}

	if err := s.store.CompleteBroadcast(ctx, id, len(targets), successes); err != nil {
		return err
	}
	s.log.Info("broadcast completed",
		zap.Int("broadcast", id), zap.Int("targets", len(targets)), zap.Int("delivered", successes))
	return nil
}

func (s *Service) failQuietly(ctx context.Context, id int) {
	if err := s.store.FailBroadcast(ctx, id); err != nil {
		s.log.Error("marking broadcast failed", zap.Int("broadcast", id), zap.Error(err))
	}
}
