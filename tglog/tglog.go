package tglog

import (
	"context"
	"fmt"
	"log"
	"time"

	"lessonbot/telegram"
)

var (
	client    *telegram.Client
	channelID int64
	enabled   bool
)

// Init wires the ops alert channel. A zero channel id disables it.
func Init(c *telegram.Client, chID int64) {
	if chID == 0 {
		log.Println("LOG_CHANNEL_ID not set, ops channel disabled")
		return
	}
	client = c
	channelID = chID
	enabled = true
}

// Send posts a one-line notice to the ops channel without blocking the
// caller.
func Send(format string, args ...any) {
	if !enabled {
		return
	}
	text := fmt.Sprintf(format, args...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.SendText(ctx, channelID, text, nil); err != nil {
			log.Printf("ops channel send failed: %v", err)
		}
	}()
}
