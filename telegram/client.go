// Package telegram is the thin egress adapter over the platform client.
// Everything outbound goes through it so callers never touch *bot.Bot
// directly and error classification stays in one place.
package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// api lists the platform methods the adapter uses; *bot.Bot satisfies it.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	SendVideoNote(ctx context.Context, params *bot.SendVideoNoteParams) (*models.Message, error)
	SendVoice(ctx context.Context, params *bot.SendVoiceParams) (*models.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
	RefundStarPayment(ctx context.Context, params *bot.RefundStarPaymentParams) (bool, error)
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
}

type Client struct {
	api          api
	captionLimit int
}

func NewClient(b *bot.Bot, captionLimit int) *Client {
	if captionLimit <= 0 {
		captionLimit = 1024
	}
	return &Client{api: b, captionLimit: captionLimit}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	_, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	return err
}

// sendWithCaption splits over-limit captions: the media goes out bare
// and the text follows as a separate message.
func (c *Client) sendWithCaption(ctx context.Context, chatID int64, caption string,
	send func(caption string) error) error {

	if len([]rune(caption)) <= c.captionLimit {
		return send(caption)
	}
	if err := send(""); err != nil {
		return err
	}
	return c.SendText(ctx, chatID, caption, nil)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendWithCaption(ctx, chatID, caption, func(cap string) error {
		_, err := c.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    chatID,
			Photo:     &models.InputFileString{Data: fileID},
			Caption:   cap,
			ParseMode: models.ParseModeHTML,
		})
		return err
	})
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendWithCaption(ctx, chatID, caption, func(cap string) error {
		_, err := c.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:    chatID,
			Video:     &models.InputFileString{Data: fileID},
			Caption:   cap,
			ParseMode: models.ParseModeHTML,
		})
		return err
	})
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendWithCaption(ctx, chatID, caption, func(cap string) error {
		_, err := c.api.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:    chatID,
			Document:  &models.InputFileString{Data: fileID},
			Caption:   cap,
			ParseMode: models.ParseModeHTML,
		})
		return err
	})
}

func (c *Client) SendAudio(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendWithCaption(ctx, chatID, caption, func(cap string) error {
		_, err := c.api.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:    chatID,
			Audio:     &models.InputFileString{Data: fileID},
			Caption:   cap,
			ParseMode: models.ParseModeHTML,
		})
		return err
	})
}

func (c *Client) SendVideoNote(ctx context.Context, chatID int64, fileID string) error {
	_, err := c.api.SendVideoNote(ctx, &bot.SendVideoNoteParams{
		ChatID:    chatID,
		VideoNote: &models.InputFileString{Data: fileID},
	})
	return err
}

func (c *Client) SendVoice(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendWithCaption(ctx, chatID, caption, func(cap string) error {
		_, err := c.api.SendVoice(ctx, &bot.SendVoiceParams{
			ChatID:  chatID,
			Voice:   &models.InputFileString{Data: fileID},
			Caption: cap,
		})
		return err
	})
}

// SendInvoice issues a Stars invoice. Stars payments carry no provider
// token and use the XTR currency.
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, amount int) error {
	_, err := c.api.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       title,
		Description: description,
		Payload:     payload,
		Currency:    "XTR",
		Prices: []models.LabeledPrice{{
			Label:  title,
			Amount: amount,
		}},
	})
	return err
}

func (c *Client) RefundPayment(ctx context.Context, userID int64, chargeID string) error {
	_, err := c.api.RefundStarPayment(ctx, &bot.RefundStarPaymentParams{
		UserID:                  userID,
		TelegramPaymentChargeID: chargeID,
	})
	return err
}

func (c *Client) ApproveChatJoin(ctx context.Context, chatID, userID int64) error {
	_, err := c.api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	return err
}
