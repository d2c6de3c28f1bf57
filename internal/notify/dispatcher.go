package notify

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/sgebot/internal/logger"
	"github.com/rileyhilliard/sgebot/internal/store"
)

// Dispatcher decides which reports reach the chat.
type Dispatcher struct {
	poster Poster
	store  store.Store
	log    logger.Logger
}

// NewDispatcher creates a Dispatcher. The store holds the last text per key.
func NewDispatcher(poster Poster, st store.Store, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Dispatcher{poster: poster, store: st, log: log}
}

// Alert posts text to the lab channel every time it is non-empty.
func (d *Dispatcher) Alert(ctx context.Context, text string) error {
	if text == "" {
		d.log.Debug("no alerts")
		return nil
	}
	if _, err := d.poster.PostLab(ctx, text, ""); err != nil {
		return err
	}
	d.log.Info("posted alert (%d bytes)", len(text))
	return nil
}

// Lab posts text to the lab channel, in threadTS when set, and returns the
// message timestamp.
func (d *Dispatcher) Lab(ctx context.Context, text, threadTS string) (string, error) {
	ts, err := d.poster.PostLab(ctx, text, threadTS)
	if err != nil {
		return "", err
	}
	d.log.Info("posted to lab (%d bytes)", len(text))
	return ts, nil
}

// LabIfChanged posts text to the lab channel when it differs from what was
// stored under key. It reports whether it posted.
func (d *Dispatcher) LabIfChanged(ctx context.Context, key, text, threadTS string) (bool, error) {
	changed, err := d.swap(key, text)
	if err != nil || !changed {
		return false, err
	}
	if _, err := d.poster.PostLab(ctx, text, threadTS); err != nil {
		return false, err
	}
	d.log.Info("posted %s to lab", key)
	return true, nil
}

// WebhookIfChanged posts text through the webhook when it differs from what
// was stored under key. It reports whether it posted.
func (d *Dispatcher) WebhookIfChanged(ctx context.Context, key, text string) (bool, error) {
	changed, err := d.swap(key, text)
	if err != nil || !changed {
		return false, err
	}
	if err := d.poster.PostWebhook(ctx, text); err != nil {
		return false, err
	}
	d.log.Info("posted %s through webhook", key)
	return true, nil
}

// swap stores text under key and reports whether it differs from the
// previous value. A missing previous value counts as a change. The new text
// is stored before anything is posted.
func (d *Dispatcher) swap(key, text string) (bool, error) {
	prev, ok, err := d.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("reading last %s: %w", key, err)
	}
	if err := d.store.Put(key, text); err != nil {
		return false, fmt.Errorf("saving %s: %w", key, err)
	}

	if ok && prev == text {
		d.log.Info("%s unchanged, not posting", key)
		return false, nil
	}
	return true, nil
}
