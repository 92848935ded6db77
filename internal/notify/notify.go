// Package notify keeps one Telegram message updated through the
// lifecycle of a build.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Sender is the slice of the Telegram client the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) (int64, error)
	EditMessageText(ctx context.Context, chatID string, messageID int64, text string) error
	EditMessageCaption(ctx context.Context, chatID string, messageID int64, caption string) error
	SendPhoto(ctx context.Context, chatID, photoPath, caption string) (int64, error)
	SendDocument(ctx context.Context, chatID, filePath string) (int64, error)
	PinChatMessage(ctx context.Context, chatID string, messageID int64) error
}

// Notifier drives the status message for one build. It remembers
// whether the announcement went out as a photo, because photo messages
// get their caption edited while text messages get their body edited.
type Notifier struct {
	sender      Sender
	chatID      string
	errorChatID string
	pin         bool

	build     Build
	messageID int64
	useBanner bool
}

// New returns a Notifier posting to chatID. Logs go to errorChatID
// when set, otherwise to the main chat.
func New(sender Sender, chatID, errorChatID string, pin bool, build Build) *Notifier {
	return &Notifier{
		sender:      sender,
		chatID:      chatID,
		errorChatID: errorChatID,
		pin:         pin,
		build:       build,
	}
}

// MessageID reports the id of the announcement message, 0 before
// Announce succeeds.
func (n *Notifier) MessageID() int64 { return n.messageID }

// Announce posts the initial build message. When bannerPath is set it
// tries a photo first and falls back to plain text if the photo is
// rejected.
func (n *Notifier) Announce(ctx context.Context, bannerPath string) error {
	if bannerPath != "" {
		id, err := n.sender.SendPhoto(ctx, n.chatID, bannerPath, buildingCaption(n.build, "Initializing build..."))
		if err == nil {
			n.messageID = id
			n.useBanner = true
			return nil
		}
		slog.Warn("banner rejected, falling back to text", "error", err)
	}

	id, err := n.sender.SendMessage(ctx, n.chatID, compilingText(n.build, "Initializing..."))
	if err != nil {
		return fmt.Errorf("announcing build: %w", err)
	}
	n.messageID = id
	return nil
}

func (n *Notifier) edit(ctx context.Context, text string) error {
	if n.messageID == 0 {
		return fmt.Errorf("no announcement message to edit")
	}
	if n.useBanner {
		return n.sender.EditMessageCaption(ctx, n.chatID, n.messageID, text)
	}
	return n.sender.EditMessageText(ctx, n.chatID, n.messageID, text)
}

// Syncing switches the message to the source sync phase.
func (n *Notifier) Syncing(ctx context.Context) error {
	return n.edit(ctx, syncingText(n.build))
}

// Progress updates the message with the latest compiler progress.
func (n *Notifier) Progress(ctx context.Context, status string) error {
	if n.useBanner {
		return n.edit(ctx, buildingCaption(n.build, status))
	}
	return n.edit(ctx, compilingText(n.build, status))
}

// Uploading shows an upload phase, e.g. "Uploading ROM zip...".
func (n *Notifier) Uploading(ctx context.Context, status string) error {
	return n.edit(ctx, uploadingText(n.build, status))
}

// Success finalizes the message with download links and build stats,
// pinning it when configured.
func (n *Notifier) Success(ctx context.Context, r Report) error {
	if err := n.edit(ctx, successText(n.build, r)); err != nil {
		return err
	}
	if n.pin {
		if err := n.sender.PinChatMessage(ctx, n.chatID, n.messageID); err != nil {
			slog.Warn("pinning result message", "error", err)
		}
	}
	return nil
}

// Failure finalizes the message with the failure summary.
func (n *Notifier) Failure(ctx context.Context, lastProgress string, d time.Duration) error {
	return n.edit(ctx, failureText(n.build, lastProgress, d))
}

// Interrupted finalizes the message after a cancelled build.
func (n *Notifier) Interrupted(ctx context.Context) error {
	return n.edit(ctx, interruptedText(n.build))
}

// SendLogs ships the given log files to the error chat. Missing or
// empty files are skipped.
func (n *Notifier) SendLogs(ctx context.Context, paths ...string) {
	chat := n.errorChatID
	if chat == "" {
		chat = n.chatID
	}
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil || fi.Size() == 0 {
			continue
		}
		if _, err := n.sender.SendDocument(ctx, chat, path); err != nil {
			slog.Warn("sending log", "path", path, "error", err)
		}
	}
}

// SendBuildLog ships the build log to the main chat after a success.
func (n *Notifier) SendBuildLog(ctx context.Context, path string) {
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		return
	}
	if _, err := n.sender.SendDocument(ctx, n.chatID, path); err != nil {
		slog.Warn("sending build log", "error", err)
	}
}
