package webhook

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/output"
)

// Delivery is the outcome of one configured webhook.
type Delivery struct {
	Name     string
	Skipped  bool
	Response *Response
}

// ShouldFire determines if a webhook should fire based on trigger and issues.
func ShouldFire(trigger config.WebhookTrigger, hasIssues bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}

// Notify sends report to every webhook whose trigger matches, concurrently.
// Failures are logged and reported in the returned deliveries; they never
// produce an error. Deliveries are in the order of hooks.
func (c *Client) Notify(ctx context.Context, report *output.Report, hooks []config.WebhookConfig, logger *zap.Logger) []Delivery {
	if logger == nil {
		logger = zap.NewNop()
	}

	deliveries := make([]Delivery, len(hooks))
	var g errgroup.Group

	for i, wh := range hooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		deliveries[i].Name = name

		if !ShouldFire(wh.Trigger, report.HasIssues()) {
			deliveries[i].Skipped = true
			logger.Debug("webhook skipped", zap.String("webhook", name), zap.String("trigger", string(wh.Trigger)))
			continue
		}

		g.Go(func() error {
			resp := c.Send(ctx, report, SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Timeout: wh.Timeout,
			})
			deliveries[i].Response = resp

			if resp.Success() {
				logger.Info("webhook sent",
					zap.String("webhook", name),
					zap.Int("status", resp.StatusCode),
					zap.Duration("duration", resp.Duration))
			} else {
				logger.Warn("webhook failed",
					zap.String("webhook", name),
					zap.Error(resp.Error))
			}
			return nil
		})
	}

	_ = g.Wait()
	return deliveries
}
