// Package support runs the ticket workflow: creation with a unique
// TK number, two-party response threading and the open → in_progress →
// closed status machine.
package support

import (
	"context"
	"crypto/rand"
	"fmt"

	"lessonbot/database"
	"lessonbot/errs"
)

const (
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberLength   = 6
	createRetries  = 5
)

type Store interface {
	InsertTicket(ctx context.Context, userID int64, number, subject, message string, priority database.TicketPriority) (*database.SupportTicket, error)
	GetTicket(ctx context.Context, id int) (*database.SupportTicket, error)
	ListTickets(ctx context.Context, status *database.TicketStatus, limit int) ([]database.SupportTicket, error)
	AssignTicket(ctx context.Context, id int, adminID int64) error
	CloseTicket(ctx context.Context, id int) error
	ReopenTicket(ctx context.Context, id int) error
	InsertTicketResponse(ctx context.Context, ticketID int, senderKind string, senderID int64, message string, internal bool) (*database.SupportResponse, error)
	ListTicketResponses(ctx context.Context, ticketID int) ([]database.SupportResponse, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// NewTicketNumber samples "TK" plus six alphanumeric characters.
func NewTicketNumber() string {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble
		panic(err)
	}
	out := make([]byte, numberLength)
	for i, b := range buf {
		out[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "TK" + string(out)
}

// CreateTicket retries on ticket-number collisions with fresh samples.
func (s *Service) CreateTicket(ctx context.Context, userID int64, subject, message string, priority database.TicketPriority) (*database.SupportTicket, error) {
	if message == "" {
		return nil, errs.New(errs.Validation, "message is required")
	}
	if subject == "" {
		subject = message
		if len([]rune(subject)) > 60 {
			subject = string([]rune(subject)[:60])
		}
	}
	if priority == "" {
		priority = database.PriorityNormal
	}

	var lastErr error
	for i := 0; i < createRetries; i++ {
		ticket, err := s.store.InsertTicket(ctx, userID, NewTicketNumber(), subject, message, priority)
		if err == nil {
			return ticket, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("ticket number collisions exhausted retries: %w", lastErr)
}

func (s *Service) Get(ctx context.Context, id int) (*database.SupportTicket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if database.IsNoRows(err) {
		return nil, errs.New(errs.NotFound, "ticket not found")
	}
	return t, err
}

func (s *Service) List(ctx context.Context, status *database.TicketStatus, limit int) ([]database.SupportTicket, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListTickets(ctx, status, limit)
}

// AddUserResponse threads a user message onto their own ticket.
func (s *Service) AddUserResponse(ctx context.Context, ticketID int, userID int64, message string) (*database.SupportResponse, *database.SupportTicket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.UserID != userID {
		return nil, nil, errs.New(errs.Entitlement, "not your ticket")
	}
	if ticket.Status == database.TicketClosed {
		return nil, nil, errs.New(errs.Conflict, "ticket is closed")
	}
	resp, err := s.store.InsertTicketResponse(ctx, ticketID, "user", userID, message, false)
	if err != nil {
		return nil, nil, err
	}
	return resp, ticket, nil
}

// AddAdminResponse threads an admin reply. A reply to an open ticket
// moves it to in_progress and assigns the responding admin.
func (s *Service) AddAdminResponse(ctx context.Context, ticketID int, adminID int64, message string, internal bool) (*database.SupportResponse, *database.SupportTicket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.store.InsertTicketResponse(ctx, ticketID, "admin", adminID, message, internal)
	if err != nil {
		return nil, nil, err
	}

	if ticket.Status == database.TicketOpen {
		if err := s.store.AssignTicket(ctx, ticketID, adminID); err != nil {
			return nil, nil, err
		}
		ticket.Status = database.TicketInProgress
		ticket.AssignedAdmin = &adminID
	}
	return resp, ticket, nil
}

func (s *Service) Assign(ctx context.Context, ticketID int, adminID int64) error {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status == database.TicketClosed {
		return errs.New(errs.Conflict, "ticket is closed")
	}
	return s.store.AssignTicket(ctx, ticketID, adminID)
}

func (s *Service) Close(ctx context.Context, ticketID int) error {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status == database.TicketClosed {
		return errs.New(errs.Conflict, "ticket is already closed")
	}
	return s.store.CloseTicket(ctx, ticketID)
}

func (s *Service) Reopen(ctx context.Context, ticketID int) error {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != database.TicketClosed {
		return errs.New(errs.Conflict, "ticket is not closed")
	}
	return s.store.ReopenTicket(ctx, ticketID)
}

// Responses returns the thread in chronological order.
func (s *Service) Responses(ctx context.Context, ticketID int) ([]database.SupportResponse, error) {
	return s.store.ListTicketResponses(ctx, ticketID)
}
