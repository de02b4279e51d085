package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lessonbot/database"
	"lessonbot/errs"
)

type mockStore struct {
	broadcasts map[int]*database.Broadcast
	audiences  map[string][]int64
	nextID     int

	completed  bool
	failed     bool
	totalSaved int
	okSaved    int
}

func newMockStore() *mockStore {
	return &mockStore{
		broadcasts: map[int]*database.Broadcast{},
		audiences:  map[string][]int64{},
		nextID:     1,
	}
}

func (m *mockStore) InsertBroadcast(_ context.Context, adminID int64, text string, mediaType, fileHandle *string) (*database.Broadcast, error) {
	b := &database.Broadcast{
		ID: m.nextID, AdminID: adminID, Text: text,
		MediaType: mediaType, FileHandle: fileHandle,
		Status: database.BroadcastPending,
	}
	m.nextID++
	m.broadcasts[b.ID] = b
	return b, nil
}

func (m *mockStore) GetBroadcast(_ context.Context, id int) (*database.Broadcast, error) {
	b, ok := m.broadcasts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return b, nil
}

func (m *mockStore) GetBroadcastStatus(_ context.Context, id int) (database.BroadcastStatus, error) {
	b, ok := m.broadcasts[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return b.Status, nil
}

func (m *mockStore) ClaimBroadcastSending(_ context.Context, id int) (bool, error) {
	b, ok := m.broadcasts[id]
	if !ok || b.Status != database.BroadcastPending {
		return false, nil
	}
	b.Status = database.BroadcastSending
	return true, nil
}

func (m *mockStore) CompleteBroadcast(_ context.Context, id, totalTargets, successCount int) error {
	m.broadcasts[id].Status = database.BroadcastCompleted
	m.completed = true
	m.totalSaved = totalTargets
	m.okSaved = successCount
	return nil
}

func (m *mockStore) FailBroadcast(_ context.Context, id int) error {
	m.broadcasts[id].Status = database.BroadcastFailed
	m.failed = true
	return nil
}

func (m *mockStore) CancelBroadcast(_ context.Context, id int) (bool, error) {
	b := m.broadcasts[id]
	if b.Status != database.BroadcastPending {
		return false, nil
	}
	b.Status = database.BroadcastCancelled
	return true, nil
}

func (m *mockStore) DeleteBroadcast(_ context.Context, id int) error {
	delete(m.broadcasts, id)
	return nil
}

func (m *mockStore) ListBroadcasts(_ context.Context, limit int) ([]database.Broadcast, error) {
	var out []database.Broadcast
	for _, b := range m.broadcasts {
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockStore) ListAudienceIDs(_ context.Context, audience string) ([]int64, error) {
	return m.audiences[audience], nil
}

type recordingSender struct {
	sent    []int64
	failFor map[int64]error
	after   func(chatID int64)
}

func (r *recordingSender) send(_ context.Context, chatID int64, _, _, _ string) error {
	if err := r.failFor[chatID]; err != nil {
		return err
	}
	r.sent = append(r.sent, chatID)
	if r.after != nil {
		r.after(chatID)
	}
	return nil
}

func newService(store *mockStore, sender *recordingSender) *Service {
	return New(store, sender.send, time.Millisecond, zap.NewNop())
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMockStore(), &recordingSender{})
	ctx := context.Background()
	photo := "photo"
	sticker := "sticker"
	fileID := "file-1"

	_, err := svc.Create(ctx, 1, "", nil, nil)
	assert.True(t, errs.Is(err, errs.Validation))

	_, err = svc.Create(ctx, 1, "текст", &photo, nil)
	assert.True(t, errs.Is(err, errs.Validation), "media type without file")

	_, err = svc.Create(ctx, 1, "текст", &sticker, &fileID)
	assert.True(t, errs.Is(err, errs.Validation), "unsupported media type")

	b, err := svc.Create(ctx, 1, "текст", &photo, &fileID)
	require.NoError(t, err)
	assert.Equal(t, database.BroadcastPending, b.Status)
}

func TestSendDeliversAndTallies(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10, 20, 30}
	sender := &recordingSender{failFor: map[int64]error{
		20: errors.New("Forbidden: bot was blocked by the user"),
	}}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "привет", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Send(context.Background(), b.ID, AudienceAll))

	assert.Equal(t, []int64{10, 30}, sender.sent)
	assert.True(t, store.completed)
	assert.Equal(t, 3, store.totalSaved)
	assert.Equal(t, 2, store.okSaved)
	assert.Equal(t, database.BroadcastCompleted, store.broadcasts[b.ID].Status)
}

func TestSendUsesRequestedAudience(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10, 20, 30}
	store.audiences["buyers"] = []int64{20}
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "только покупателям", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Send(context.Background(), b.ID, AudienceBuyers))
	assert.Equal(t, []int64{20}, sender.sent)
}

func TestSendRejectsUnknownAudience(t *testing.T) {
	svc := newService(newMockStore(), &recordingSender{})
	err := svc.Send(context.Background(), 1, Audience("everyone"))
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestSendClaimGuardBlocksSecondRun(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10}
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "раз", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Send(context.Background(), b.ID, AudienceAll))
	err = svc.Send(context.Background(), b.ID, AudienceAll)
	assert.True(t, errs.Is(err, errs.Conflict))
	assert.Len(t, sender.sent, 1)
}

func TestSendCancelledBroadcastNeverStarts(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10}
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "раз", nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), b.ID))

	err = svc.Send(context.Background(), b.ID, AudienceAll)
	assert.True(t, errs.Is(err, errs.Conflict))
	assert.Empty(t, sender.sent)
}

func TestSendStopsOnContextCancel(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10, 20}
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "раз", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.Send(ctx, b.ID, AudienceAll)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, store.failed)
	assert.Empty(t, sender.sent)
}

// Flipping the row out of sending stops the fan-out at the next
// iteration boundary without overwriting the new status.
func TestSendStopsWhenRowLeavesSending(t *testing.T) {
	store := newMockStore()
	store.audiences["all"] = []int64{10, 20, 30}
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "раз", nil, nil)
	require.NoError(t, err)

	sender.after = func(chatID int64) {
		if chatID == 20 {
			store.broadcasts[b.ID].Status = database.BroadcastCancelled
		}
	}

	err = svc.Send(context.Background(), b.ID, AudienceAll)
	assert.True(t, errs.Is(err, errs.Conflict))
	assert.Equal(t, []int64{10, 20}, sender.sent)
	assert.False(t, store.completed)
	assert.False(t, store.failed)
	assert.Equal(t, database.BroadcastCancelled, store.broadcasts[b.ID].Status)
}

func TestCancelConflictsAfterClaim(t *testing.T) {
	store := newMockStore()
	sender := &recordingSender{}
	svc := newService(store, sender)

	b, err := svc.Create(context.Background(), 1, "раз", nil, nil)
	require.NoError(t, err)

	claimed, err := store.ClaimBroadcastSending(context.Background(), b.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	err = svc.Cancel(context.Background(), b.ID)
	assert.True(t, errs.Is(err, errs.Conflict))
}

func TestCancelUnknownBroadcast(t *testing.T) {
	svc := newService(newMockStore(), &recordingSender{})
	err := svc.Cancel(context.Background(), 404)
	assert.True(t, errs.Is(err, errs.NotFound))
}
