package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/message"

	"ticketera/common"
	"ticketera/common/constant"
	"ticketera/common/contract"
	"ticketera/common/otel"
	"ticketera/model"
	"ticketera/outbound/store"
)

type PurchaseEvent struct {
	Db                contract.DbConn
	Querier           *store.Queries
	Publisher         jetstream.Publisher
	CurrencyFormatter *message.Printer

	Timeout time.Duration
}

func (in PurchaseEvent) CreatedHandler(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	var req model.PurchaseCreatedEventMessage
	err := json.Unmarshal(msg, &req)
	if err != nil {
		slog.WarnContext(ctx, "purchase created event unmarshal error", slog.Any(constant.LogFieldErr, err))
		return nil
	}

	traceIdAttr := slog.String(constant.LogFieldTraceId, ulid.Make().String())
	reqAttr := slog.Any(constant.LogFieldPayload, string(msg))

	if req.CustomerEmail == "" {
		slog.DebugContext(ctx, "purchase has no email, skipping confirmation", reqAttr, traceIdAttr)
		return nil
	}

	sendNotificationReq := model.SendNotificationEventMessage{
		To:      req.CustomerEmail,
		Subject: "Purchase Confirmation",
		Body:    in.buildPurchaseConfirmationBody(req),
	}

	err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, sendNotificationReq)
	if err != nil {
		slog.ErrorContext(ctx, "purchase created event publish error", slog.Any(constant.LogFieldErr, err), reqAttr, traceIdAttr)
		return err
	}

	slog.DebugContext(ctx, "purchase created event publish success", reqAttr, traceIdAttr)

	return nil
}

func (in PurchaseEvent) buildPurchaseConfirmationBody(req model.PurchaseCreatedEventMessage) string {
	amountFormatted := in.CurrencyFormatter.Sprintf("Bs. %s", req.TotalAmount)

	return fmt.Sprintf(constant.NotificationPurchaseConfirmationTemplate,
		req.CustomerName,
		req.EventTitle,
		amountFormatted,
		req.VerificationCode,
	)
}

// VerifyHandler drives a submitted purchase all the way to completed in one
// transaction. The status predicate on the first update is the fence: a
// redelivered or duplicate message updates zero rows and is dropped.
func (in PurchaseEvent) VerifyHandler(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	var req model.VerifyPurchaseEventMessage
	err := json.Unmarshal(msg, &req)
	if err != nil {
		slog.WarnContext(ctx, "verify purchase event unmarshal error", slog.Any(constant.LogFieldErr, err))
		return nil
	}

	ctx, span := otel.Tracer.Start(ctx, "PurchaseEvent.verify")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	slog.InfoContext(ctx, "verify purchase event receive request", slog.Any(constant.LogFieldPayload, req), traceIdAttr)

	purchase, err := in.Querier.FindPurchaseById(ctx, req.Id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	tx, err := in.Db.Begin(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.ErrorContext(ctx, "failed to rollback transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		}
	}()

	withTx := in.Querier.WithTx(tx)

	affected, err := withTx.VerifyPurchase(ctx, req.Id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	if affected == 0 {
		slog.WarnContext(ctx, "purchase is not payment_submitted, dropping", traceIdAttr)
		return nil
	}

	// Plain verification leaves tickets pending for the door flow. mark_used
	// is the admin shortcut that admits the whole purchase at once.
	if req.MarkUsed {
		if _, err = withTx.BulkValidateTicketsByPurchase(ctx, req.Id, req.VerifiedBy); err != nil {
			slog.ErrorContext(ctx, "failed to validate tickets", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			return err
		}

		if _, err = withTx.BulkUseTicketsByPurchase(ctx, req.Id); err != nil {
			slog.ErrorContext(ctx, "failed to use tickets", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			return err
		}
	}

	affected, err = withTx.CompletePurchase(ctx, req.Id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to complete purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	if affected == 0 {
		slog.ErrorContext(ctx, "purchase is not payment_verified", traceIdAttr)
		return fmt.Errorf("purchase %s is not payment_verified", req.Id)
	}

	if err = withTx.SetPurchaseNotified(ctx, req.Id, true, true); err != nil {
		slog.ErrorContext(ctx, "failed to mark purchase notified", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to commit transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return err
	}

	if purchase.CustomerEmail != "" {
		event, err := in.Querier.FindEventById(ctx, purchase.EventId)
		if err != nil {
			slog.ErrorContext(ctx, "failed to get event for notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			return nil
		}

		notifyPayload := model.SendNotificationEventMessage{
			To:      purchase.CustomerEmail,
			Subject: "Your Tickets Are Ready",
			Body:    in.buildTicketsReadyBody(purchase, event.Title),
		}

		err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, notifyPayload)
		if err != nil {
			slog.ErrorContext(ctx, "failed to publish tickets ready notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			return nil
		}
	}

	slog.InfoContext(ctx, "verify purchase event success", traceIdAttr)

	return nil
}

func (in PurchaseEvent) buildTicketsReadyBody(purchase model.Purchase, eventTitle string) string {
	amountFormatted := in.CurrencyFormatter.Sprintf("Bs. %s", purchase.TotalAmount.StringFixed(2))

	return fmt.Sprintf(constant.NotificationTicketsReadyTemplate,
		purchase.CustomerName,
		eventTitle,
		amountFormatted,
		purchase.VerificationCode,
	)
}
