package database

import "time"

type ContentType string

const (
	ContentText     ContentType = "text"
	ContentPhoto    ContentType = "photo"
	ContentVideo    ContentType = "video"
	ContentDocument ContentType = "document"
	ContentAudio    ContentType = "audio"
)

func ValidContentType(t ContentType) bool {
	switch t {
	case ContentText, ContentPhoto, ContentVideo, ContentDocument, ContentAudio:
		return true
	}
	return false
}

type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseRefunded  PurchaseStatus = "refunded"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

type BroadcastStatus string

const (
	BroadcastPending   BroadcastStatus = "pending"
	BroadcastSending   BroadcastStatus = "sending"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastFailed    BroadcastStatus = "failed"
	BroadcastCancelled BroadcastStatus = "cancelled"
)

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

type User struct {
	ID             int64
	Username       *string
	FullName       string
	Language       string
	RegisteredAt   time.Time
	LastActivityAt time.Time
	IsActive       bool
	TotalSpent     int
}

type Admin struct {
	UserID      int64
	Username    *string
	Permissions string
	IsActive    bool
	CreatedAt   time.Time
	LastLogin   *time.Time
}

type Category struct {
	ID          int
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Lesson struct {
	ID          int
	Title       string
	Description string
	Price       int
	ContentType ContentType
	FileHandle  *string
	DurationSec *int
	IsActive    bool
	IsFree      bool
	CategoryID  *int
	// Legacy name column kept alongside category_id until migrated.
	Category  *string
	Views     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Purchase struct {
	ID              int
	UserID          int64
	LessonID        *int // nil after the lesson is hard-deleted
	PaymentChargeID string
	Amount          int
	Status          PurchaseStatus
	PurchasedAt     time.Time
	RefundedAt      *time.Time
}

type TextEntry struct {
	Key         string
	ValueRU     string
	ValueEN     *string
	Category    string
	Description *string
	UpdatedAt   time.Time
}

type SupportTicket struct {
	ID             int
	UserID         int64
	TicketNumber   string
	Subject        string
	InitialMessage string
	Status         TicketStatus
	Priority       TicketPriority
	AssignedAdmin  *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

type SupportResponse struct {
	ID         int
	TicketID   int
	SenderKind string // "user" or "admin"
	SenderID   int64
	Message    string
	IsInternal bool
	CreatedAt  time.Time
}

type Broadcast struct {
	ID           int
	AdminID      int64
	Text         string
	MediaType    *string
	FileHandle   *string
	Status       BroadcastStatus
	CreatedAt    time.Time
	SentAt       *time.Time
	TotalTargets int
	SuccessCount int
}

type WithdrawalRequest struct {
	ID            int
	AdminID       int64
	Amount        int
	WalletAddress string
	Commission    int
	NetAmount     int
	Status        WithdrawalStatus
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	TransactionID *string
	FailureReason *string
	Notes         *string
}
