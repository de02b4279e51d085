// Package fsm keeps per-user conversation state for multi-step flows.
// A state is a tag plus a string payload accumulator. Setting a new tag
// discards the previous payload; the latest Set wins under concurrency.
package fsm

import (
	"context"
	"time"
)

type Tag string

const (
	// Admin flows
	AdminCreatingLesson     Tag = "admin_creating_lesson"
	AdminEditingLesson      Tag = "admin_editing_lesson"
	AdminEditingCategory    Tag = "admin_editing_category"
	AdminComposingBroadcast Tag = "admin_composing_broadcast"
	AdminEditingText        Tag = "admin_editing_text"
	AdminCreatingWithdrawal Tag = "admin_creating_withdrawal"
	AdminRespondingTicket   Tag = "admin_responding_ticket"

	// User flows
	UserContactingSupport Tag = "user_contacting_support"
)

type Payload map[string]string

type State struct {
	Tag       Tag
	Payload   Payload
	UpdatedAt time.Time
}

// Store is the conversation state backend. Get returns nil when the
// user has no active state.
type Store interface {
	Get(ctx context.Context, userID int64) (*State, error)
	Set(ctx context.Context, userID int64, tag Tag, payload Payload) error
	UpdatePayload(ctx context.Context, userID int64, patch Payload) error
	Clear(ctx context.Context, userID int64) error
}

func clonePayload(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
