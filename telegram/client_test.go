package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	messages  []*bot.SendMessageParams
	photos    []*bot.SendPhotoParams
	invoices  []*bot.SendInvoiceParams
	refunds   []*bot.RefundStarPaymentParams
	approvals []*bot.ApproveChatJoinRequestParams
	err       error
}

func (f *fakeAPI) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, p)
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	f.photos = append(f.photos, p)
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendVideo(_ context.Context, _ *bot.SendVideoParams) (*models.Message, error) {
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendDocument(_ context.Context, _ *bot.SendDocumentParams) (*models.Message, error) {
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendAudio(_ context.Context, _ *bot.SendAudioParams) (*models.Message, error) {
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendVideoNote(_ context.Context, _ *bot.SendVideoNoteParams) (*models.Message, error) {
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendVoice(_ context.Context, _ *bot.SendVoiceParams) (*models.Message, error) {
	return &models.Message{}, f.err
}

func (f *fakeAPI) SendInvoice(_ context.Context, p *bot.SendInvoiceParams) (*models.Message, error) {
	f.invoices = append(f.invoices, p)
	return &models.Message{}, f.err
}

func (f *fakeAPI) RefundStarPayment(_ context.Context, p *bot.RefundStarPaymentParams) (bool, error) {
	f.refunds = append(f.refunds, p)
	return f.err == nil, f.err
}

func (f *fakeAPI) ApproveChatJoinRequest(_ context.Context, p *bot.ApproveChatJoinRequestParams) (bool, error) {
	f.approvals = append(f.approvals, p)
	return f.err == nil, f.err
}

func newTestClient(api *fakeAPI, limit int) *Client {
	return &Client{api: api, captionLimit: limit}
}

func TestSendPhotoShortCaptionStaysInline(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api, 1024)

	require.NoError(t, c.SendPhoto(context.Background(), 10, "file-1", "короткая подпись"))

	require.Len(t, api.photos, 1)
	assert.Equal(t, "короткая подпись", api.photos[0].Caption)
	assert.Empty(t, api.messages)
}

func TestSendPhotoLongCaptionSplits(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api, 20)
	caption := strings.Repeat("ю", 21)

	require.NoError(t, c.SendPhoto(context.Background(), 10, "file-1", caption))

	require.Len(t, api.photos, 1)
	assert.Empty(t, api.photos[0].Caption)
	require.Len(t, api.messages, 1)
	assert.Equal(t, caption, api.messages[0].Text)
}

func TestSendPhotoCaptionLimitCountsRunes(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api, 20)

	// 20 cyrillic runes are 40 bytes and must still fit inline
	require.NoError(t, c.SendPhoto(context.Background(), 10, "file-1", strings.Repeat("ю", 20)))

	require.Len(t, api.photos, 1)
	assert.NotEmpty(t, api.photos[0].Caption)
	assert.Empty(t, api.messages)
}

func TestSendInvoiceUsesStarsCurrency(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api, 1024)

	require.NoError(t, c.SendInvoice(context.Background(), 10, "Урок", "Описание", "lesson_1_10_0", 150))

	require.Len(t, api.invoices, 1)
	inv := api.invoices[0]
	assert.Equal(t, "XTR", inv.Currency)
	assert.Empty(t, inv.ProviderToken)
	require.Len(t, inv.Prices, 1)
	assert.Equal(t, 150, inv.Prices[0].Amount)
}

func TestRefundPayment(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api, 1024)

	require.NoError(t, c.RefundPayment(context.Background(), 77, "charge-abc"))

	require.Len(t, api.refunds, 1)
	assert.Equal(t, int64(77), api.refunds[0].UserID)
	assert.Equal(t, "charge-abc", api.refunds[0].TelegramPaymentChargeID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrClass
	}{
		{"blocked", errors.New("Forbidden: bot was blocked by the user"), ErrRecipientBlocked},
		{"deactivated", errors.New("Forbidden: user is deactivated"), ErrRecipientBlocked},
		{"chat gone", errors.New("Bad Request: chat not found"), ErrRecipientBlocked},
		{"bad request", errors.New("Bad Request: message text is empty"), ErrBadRequest},
		{"auth", errors.New("Unauthorized"), ErrAuth},
		{"network", errors.New("dial tcp: i/o timeout"), ErrTransient},
		{"nil", nil, ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(errors.New("Forbidden: bot was blocked by the user")))
	assert.True(t, IsPermanent(errors.New("Bad Request: wrong file id")))
	assert.False(t, IsPermanent(errors.New("Too Many Requests: retry after 5")))
}
