package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/common"
)

// Handlers process the store's background tasks.
type Handlers struct {
	Mail      common.EmailSender
	ImagesDir string
	Logger    zerolog.Logger
}

// Mux returns a ServeMux routing every task kind to its handler.
func (h Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(KindOrderConfirmation, h.OrderConfirmation)
	mux.HandleFunc(KindImageDelete, h.ImageDelete)
	return mux
}

// OrderConfirmation sends the order confirmation e-mail.
func (h Handlers) OrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var p OrderConfirmation
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Mail == nil {
		return errors.New("queue: mail sender not configured")
	}
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for your order <strong>%s</strong>.</p><p>%d item(s), total %s.</p>",
		html.EscapeString(p.Name), html.EscapeString(p.OrderID), p.ItemCount, FormatAmount(p.Total),
	)
	if err := h.Mail.Send(ctx, common.Email{
		To:      p.Email,
		Subject: "Order confirmation " + shortID(p.OrderID),
		HTML:    body,
	}); err != nil {
		return err
	}
	h.Logger.Info().Str("order_id", p.OrderID).Msg("order confirmation sent")
	return nil
}

// ImageDelete removes a product image that is no longer referenced.
func (h Handlers) ImageDelete(_ context.Context, t *asynq.Task) error {
	var p ImageDelete
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	name := filepath.Base(p.FileName)
	if name != p.FileName || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("refusing to delete %q: %w", p.FileName, asynq.SkipRetry)
	}
	err := os.Remove(filepath.Join(h.ImagesDir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	h.Logger.Info().Str("file", name).Msg("product image deleted")
	return nil
}

// FormatAmount renders minor units as a decimal amount.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
