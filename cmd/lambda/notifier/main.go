// Command notifier is the Lambda flavour of the email notifier, triggered by
// an MSK (or self-managed Kafka) event source on the order topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/ec-orders/internal/app"
	"github.com/example/ec-orders/internal/config"
	"github.com/example/ec-orders/internal/email"
	"github.com/example/ec-orders/internal/infrastructure/kafka"
	"github.com/example/ec-orders/internal/infrastructure/msk"
	"github.com/example/ec-orders/internal/infrastructure/redisx"
	"github.com/example/ec-orders/internal/notification"
	"go.uber.org/zap"
)

type batchHandler struct {
	handle kafka.MessageHandler
	logger *zap.Logger
}

// Handle processes every record of the batch. A failed record fails the
// whole invocation so Lambda redelivers the batch; the redis dedup keeps
// already mailed events from being sent again.
func (b *batchHandler) Handle(ctx context.Context, ev events.KafkaEvent) error {
	records, err := msk.Records(ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range records {
		if err := b.handle(ctx, r.Key, r.Value); err != nil {
			b.logger.Error("handle record", zap.Stringer("record", r), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", r, err))
		}
	}
	b.logger.Info("batch processed", zap.Int("records", len(records)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateMailer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "lambda notifier: %v\n", err)
		os.Exit(1)
	}

	// Lambda reuses the environment across invocations; nothing is closed.
	infra, err := app.NewInfrastructure(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lambda notifier: %v\n", err)
		os.Exit(1)
	}

	var dedup notification.Deduper
	if infra.Redis != nil {
		dedup = redisx.NewDeduper(infra.Redis, cfg.KafkaGroupID)
	}
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	h := notification.NewHandler(emailSvc, infra.Store, dedup, infra.Logger)

	lambda.Start((&batchHandler{handle: h.HandleEvent, logger: infra.Logger}).Handle)
}
