package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"lessonbot/broadcast"
	"lessonbot/database"
	"lessonbot/errs"
	"lessonbot/fsm"
)

var broadcastBadge = map[database.BroadcastStatus]string{
	database.BroadcastPending:   "📝",
	database.BroadcastSending:   "📤",
	database.BroadcastCompleted: "✅",
	database.BroadcastFailed:    "❌",
	database.BroadcastCancelled: "🚫",
}

func (h *Handler) showAdminBroadcasts(ctx context.Context, req *request) {
	list, err := h.broadcasts.List(ctx, 10)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var b strings.Builder
	b.WriteString("📣 Рассылки:\n")
	var kb [][]models.InlineKeyboardButton
	for _, bc := range list {
		preview := []rune(bc.Text)
		if len(preview) > 40 {
			preview = preview[:40]
		}
		fmt.Fprintf(&b, "\n%s #%d %s (%d/%d)", broadcastBadge[bc.Status], bc.ID,
			string(preview), bc.SuccessCount, bc.TotalTargets)
		switch bc.Status {
		case database.BroadcastPending:
			kb = append(kb, row(
				btn(fmt.Sprintf("🚫 Отменить #%d", bc.ID), fmt.Sprintf("broadcast_cancel:%d", bc.ID))))
		case database.BroadcastCancelled, database.BroadcastFailed:
			kb = append(kb, row(
				btn(fmt.Sprintf("🗑 Удалить #%d", bc.ID), fmt.Sprintf("broadcast_delete:%d", bc.ID))))
		}
	}
	if len(list) == 0 {
		b.WriteString("\nпока пусто")
	}
	kb = append(kb,
		row(btn("➕ Новая рассылка", "broadcast_new")),
		row(btn("🏠", "admin_menu")))

	h.sendText(ctx, req, b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) startBroadcastCompose(ctx context.Context, req *request) {
	err := h.states.Set(ctx, req.user.ID, fsm.AdminComposingBroadcast, fsm.Payload{"step": "text"})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, "📣 Текст рассылки:", h.cancelKeyboard(ctx, req.lang()))
}

// onBroadcastComposeStep collects text, then an optional media
// attachment, then hands off to the audience picker.
func (h *Handler) onBroadcastComposeStep(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	switch state.Payload["step"] {
	case "text":
		if msg.Text == "" {
			h.sendText(ctx, req, "Жду текстовое сообщение. Попробуйте ещё раз:", nil)
			return
		}
		err := h.states.UpdatePayload(ctx, req.user.ID, fsm.Payload{"text": msg.Text, "step": "media"})
		if err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "📎 Прикрепите фото, видео или документ, либо напишите «пропустить»:",
			h.cancelKeyboard(ctx, req.lang()))

	case "media":
		patch := fsm.Payload{"step": "audience"}
		if ct, fileID, _, ok := mediaFromMessage(msg); ok {
			switch ct {
			case database.ContentPhoto, database.ContentVideo, database.ContentDocument:
				patch["media_type"] = string(ct)
				patch["file_id"] = fileID
			default:
				h.sendText(ctx, req, "Для рассылки подходят фото, видео или документ. Попробуйте ещё раз:", nil)
				return
			}
		} else if !isSkipWord(msg.Text) {
			h.sendText(ctx, req, "Прикрепите файл или напишите «пропустить»:", nil)
			return
		}
		if err := h.states.UpdatePayload(ctx, req.user.ID, patch); err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "👥 Кому отправить?", audienceKeyboard())

	default:
		h.sendText(ctx, req, "👥 Кому отправить?", audienceKeyboard())
	}
}

// onBroadcastAudience persists the composed broadcast and asks for the
// final confirmation.
func (h *Handler) onBroadcastAudience(ctx context.Context, req *request, audience string) {
	if !broadcast.ValidAudience(broadcast.Audience(audience)) {
		h.sendText(ctx, req, "👥 Кому отправить?", audienceKeyboard())
		return
	}
	state, err := h.states.Get(ctx, req.user.ID)
	if err != nil || state == nil || state.Tag != fsm.AdminComposingBroadcast {
		h.sendText(ctx, req, "Черновик рассылки не найден, начните заново.", nil)
		h.showAdminBroadcasts(ctx, req)
		return
	}

	var mediaType, fileID *string
	if mt := state.Payload["media_type"]; mt != "" {
		f := state.Payload["file_id"]
		mediaType, fileID = &mt, &f
	}
	bc, err := h.broadcasts.Create(ctx, req.user.ID, state.Payload["text"], mediaType, fileID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)

	h.sendText(ctx, req,
		fmt.Sprintf("📣 Рассылка #%d готова. Аудитория: %s.\n\n%s\n\nОтправить?", bc.ID, audience, bc.Text),
		rows(
			row(btn("✅ Отправить", fmt.Sprintf("confirm_broadcast:%d:%s", bc.ID, audience))),
			row(btn("🚫 Отменить", fmt.Sprintf("broadcast_cancel:%d", bc.ID))),
		))
}

// onBroadcastConfirm launches the fan-out in the background so the
// callback answer is not held for the whole run.
func (h *Handler) onBroadcastConfirm(ctx context.Context, req *request, id int, audience string) {
	bc, err := h.broadcasts.Get(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if bc.Status != database.BroadcastPending {
		h.replyError(ctx, req, errs.New(errs.Conflict, "broadcast is no longer pending"))
		return
	}

	go func() {
		sendCtx := context.WithoutCancel(ctx)
		if err := h.broadcasts.Send(sendCtx, id, broadcast.Audience(audience)); err != nil {
			h.log.Error("broadcast run failed", zap.Int("broadcast", id), zap.Error(err))
		}
	}()

	h.sendText(ctx, req, fmt.Sprintf("📤 Рассылка #%d запущена.", id), nil)
}

func (h *Handler) onBroadcastCancel(ctx context.Context, req *request, id int) {
	if err := h.broadcasts.Cancel(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("🚫 Рассылка #%d отменена.", id), nil)
	h.showAdminBroadcasts(ctx, req)
}

func (h *Handler) onBroadcastDelete(ctx context.Context, req *request, id int) {
	if err := h.broadcasts.Delete(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("🗑 Рассылка #%d удалена.", id), nil)
	h.showAdminBroadcasts(ctx, req)
}

func isSkipWord(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "пропустить", "skip", "-":
		return true
	}
	return false
}
