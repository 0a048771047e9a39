package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/constant"
	"ticketera/common/contract"
	"ticketera/common/errs"
	"ticketera/common/otel"
	"ticketera/model"
	"ticketera/outbound/store"
)

type PurchaseHttp struct {
	Db        contract.DbConn
	Querier   *store.Queries
	Cache     *redis.Client
	Publisher jetstream.Publisher
	Validate  *validator.Validate

	TimeNow func() time.Time

	secret         string
	sizeBulkExpire int32
	expireAfter    time.Duration
}

func RegisterPurchaseHttp(
	mux *http.ServeMux,
	cfg *viper.Viper,
	db contract.DbConn,
	querier *store.Queries,
	cache *redis.Client,
	publisher jetstream.Publisher,
	validate *validator.Validate,
) *PurchaseHttp {
	in := &PurchaseHttp{
		Db:        db,
		Querier:   querier,
		Cache:     cache,
		Publisher: publisher,
		Validate:  validate,
		TimeNow:   time.Now,

		secret:         cfg.GetString("auth.secret"),
		sizeBulkExpire: cfg.GetInt32("purchase.bulk_expire_size"),
		expireAfter:    cfg.GetDuration("purchase.expire_after"),
	}

	mux.HandleFunc("POST /api/purchases", in.create)
	mux.HandleFunc("POST /api/purchases/{id}/proof", in.submitProof)
	mux.HandleFunc("POST /api/purchases/expire", in.expire)

	mux.HandleFunc("GET /api/purchases/{id}", RequireRoles(in.secret, in.get, model.RoleAdmin, model.RoleBusiness))
	mux.HandleFunc("GET /api/events/{id}/purchases", RequireRoles(in.secret, in.listByEvent, model.RoleAdmin, model.RoleBusiness))
	mux.HandleFunc("POST /api/purchases/{id}/verify", RequireRoles(in.secret, in.verify, model.RoleAdmin))
	mux.HandleFunc("POST /api/purchases/{id}/reject", RequireRoles(in.secret, in.reject, model.RoleAdmin))
	mux.HandleFunc("POST /api/purchases/{id}/cancel", RequireRoles(in.secret, in.cancel, model.RoleAdmin))

	return in
}

func (in *PurchaseHttp) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "PurchaseHttp.create")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "create purchase receive request", slog.Any(constant.LogFieldPayload, req), traceIdAttr)

	phoneLock, err := in.Cache.SetNX(ctx, fmt.Sprintf(constant.PurchasePhoneLock, req.CustomerPhone), true, constant.PurchasePhoneLockDefaultTTL).Result()
	if err != nil {
		slog.ErrorContext(ctx, "failed to set phone lock", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if !phoneLock {
		slog.DebugContext(ctx, "phone already purchasing", traceIdAttr)
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusConflict, Message: "A purchase for this phone is already in progress"})
		return
	}

	event, err := in.Querier.FindEventById(ctx, req.EventId)
	if err != nil {
		slog.ErrorContext(ctx, "failed to find event", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if !event.PubliclyVisible() {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	sectors, err := in.Querier.FindSectorsByEvent(ctx, req.EventId)
	if err != nil {
		slog.ErrorContext(ctx, "failed to find sectors", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	var committed bool

	sectorById := make(map[string]model.EventSector, len(sectors))
	for _, sector := range sectors {
		sectorById[sector.Id] = sector
	}

	total := decimal.Zero
	var totalQty int32
	for _, item := range req.Items {
		sector, ok := sectorById[item.SectorId]
		if !ok || !sector.IsActive {
			writeErrorResponse(w, &errs.HttpError{
				Code:    http.StatusBadRequest,
				Message: "Validation failed",
				Data:    map[string]any{"SectorId": "not found"},
			})
			return
		}

		total = total.Add(sector.BasePrice.Mul(decimal.NewFromInt32(item.Quantity)))
		totalQty += item.Quantity
	}

	if event.MaxCapacity > 0 {
		// The compensating defer below reads the function-scoped err.
		var atomicVal int64
		atomicVal, err = in.Cache.DecrBy(ctx, fmt.Sprintf(constant.EventRemainingCapacityKey, req.EventId), int64(totalQty)).Result()
		if err != nil {
			slog.ErrorContext(ctx, "failed to decrement remaining capacity", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}

		if atomicVal < 0 {
			slog.DebugContext(ctx, "event sold out", traceIdAttr)

			redisErr := in.Cache.IncrBy(ctx, fmt.Sprintf(constant.EventRemainingCapacityKey, req.EventId), int64(totalQty)).Err()
			if redisErr != nil {
				slog.ErrorContext(ctx, "failed to restore remaining capacity", traceIdAttr, slog.Any(constant.LogFieldErr, redisErr))
			}

			writeErrorResponse(w, errs.ErrSoldOut)
			return
		}

		// Once the transaction commits the seats are really sold and the
		// decrement must stand, whatever happens afterwards.
		defer func() {
			if err != nil && !committed {
				redisErr := in.Cache.IncrBy(ctx, fmt.Sprintf(constant.EventRemainingCapacityKey, req.EventId), int64(totalQty)).Err()
				if redisErr != nil {
					slog.ErrorContext(ctx, "failed to restore remaining capacity", traceIdAttr, slog.Any(constant.LogFieldErr, redisErr))
				}
			}
		}()
	}

	code, err := in.uniqueVerificationCode(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	status := model.PurchasePendingPayment
	if req.PaymentProof != "" || req.PaymentMethod == model.PaymentMethodExternal {
		status = model.PurchasePaymentSubmitted
	}

	purchaseId := ulid.Make().String()

	var tx pgx.Tx
	tx, err = in.Db.Begin(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.ErrorContext(ctx, "failed to rollback transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		}
	}()

	withTx := in.Querier.WithTx(tx)

	err = withTx.InsertPurchase(ctx, store.InsertPurchaseParams{
		Id:               purchaseId,
		EventId:          req.EventId,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		TotalAmount:      total,
		PaymentMethod:    req.PaymentMethod,
		PaymentProof:     req.PaymentProof,
		Status:           status,
		VerificationCode: code,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	tickets := make([]model.Ticket, 0, len(req.Items))
	ticketCodes := map[string]bool{code: true}
	for _, item := range req.Items {
		sector := sectorById[item.SectorId]

		ticketCode := common.NewVerificationCode()
		for ticketCodes[ticketCode] {
			ticketCode = common.NewVerificationCode()
		}
		ticketCodes[ticketCode] = true

		ticket := model.Ticket{
			Id:               ulid.Make().String(),
			PurchaseId:       purchaseId,
			EventId:          req.EventId,
			SectorName:       sector.Name,
			SectorColor:      sector.Color,
			Quantity:         item.Quantity,
			UnitPrice:        sector.BasePrice,
			TotalPrice:       sector.BasePrice.Mul(decimal.NewFromInt32(item.Quantity)),
			TicketType:       item.TicketType,
			VerificationCode: ticketCode,
			QrCode:           common.NewQrPayload(),
			Status:           model.TicketPending,
		}

		err = withTx.InsertTicket(ctx, store.InsertTicketParams{
			Id:               ticket.Id,
			PurchaseId:       ticket.PurchaseId,
			EventId:          ticket.EventId,
			SectorName:       ticket.SectorName,
			SectorColor:      ticket.SectorColor,
			Quantity:         ticket.Quantity,
			UnitPrice:        ticket.UnitPrice,
			TotalPrice:       ticket.TotalPrice,
			TicketType:       ticket.TicketType,
			VerificationCode: ticket.VerificationCode,
			QrCode:           ticket.QrCode,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to insert ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}

		tickets = append(tickets, ticket)
	}

	if err = withTx.AddEventSales(ctx, req.EventId, totalQty); err != nil {
		slog.ErrorContext(ctx, "failed to add event sales", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if err = tx.Commit(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to commit transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}
	committed = true

	err = common.PublishMessage(ctx, in.Publisher, constant.SubjectPurchaseCreated, model.PurchaseCreatedEventMessage{
		Id:               purchaseId,
		EventId:          req.EventId,
		EventTitle:       event.Title,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		TotalAmount:      total.StringFixed(2),
		VerificationCode: code,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish purchase created message", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "insert purchase success", traceIdAttr, slog.String(constant.LogFieldResponse, purchaseId))

	writeJSONResponse(w, http.StatusOK, model.CreatePurchaseResponse{
		Id:               purchaseId,
		Status:           status,
		TotalAmount:      total,
		VerificationCode: code,
		Tickets:          tickets,
	})
}

// uniqueVerificationCode retries generation until the code is unused. The
// keyspace is large enough that more than one retry is pathological.
func (in *PurchaseHttp) uniqueVerificationCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := common.NewVerificationCode()

		exists, err := in.Querier.PurchaseVerificationCodeExists(ctx, code)
		if err != nil {
			return "", err
		}

		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("verification code space exhausted")
}

func (in *PurchaseHttp) submitProof(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	affected, err := in.Querier.SubmitPurchaseProof(r.Context(), r.PathValue("id"), req.PaymentProof)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		writeErrorResponse(w, errs.ErrInvalidTransition)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}

func (in *PurchaseHttp) get(w http.ResponseWriter, r *http.Request) {
	purchase, err := in.Querier.FindPurchaseById(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, purchase)
}

func (in *PurchaseHttp) listByEvent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	eventId := r.PathValue("id")

	if claims.Role == model.RoleBusiness {
		event, err := in.Querier.FindEventById(r.Context(), eventId)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}

		if event.BusinessId != claims.BusinessId {
			writeErrorResponse(w, errs.ErrForbidden)
			return
		}
	}

	purchases, err := in.Querier.ListPurchasesByEvent(r.Context(), eventId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, purchases)
}

// verify hands the completion saga to the queue consumer, which performs
// the whole payment_submitted→completed cascade in one transaction.
func (in *PurchaseHttp) verify(w http.ResponseWriter, r *http.Request) {
	// Body is optional; absent means plain verification and the tickets stay
	// with the door flow.
	var req model.VerifyPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "PurchaseHttp.verify")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	claims := claimsFromCtx(ctx)
	id := r.PathValue("id")

	purchase, err := in.Querier.FindPurchaseById(ctx, id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if purchase.Status != model.PurchasePaymentSubmitted {
		writeErrorResponse(w, errs.ErrInvalidTransition)
		return
	}

	err = common.PublishMessage(ctx, in.Publisher, constant.SubjectVerifyPurchase, model.VerifyPurchaseEventMessage{
		Id:         id,
		VerifiedBy: claims.UserId,
		MarkUsed:   req.MarkUsed,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish verify purchase message", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "verify purchase queued", traceIdAttr, slog.String(constant.LogFieldResponse, id))

	writeJSONResponse(w, http.StatusAccepted, nil)
}

func (in *PurchaseHttp) reject(w http.ResponseWriter, r *http.Request) {
	var req model.RejectPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	in.cancelById(w, r, req.Reason)
}

func (in *PurchaseHttp) cancel(w http.ResponseWriter, r *http.Request) {
	in.cancelById(w, r, "")
}

func (in *PurchaseHttp) cancelById(w http.ResponseWriter, r *http.Request, reason string) {
	ctx, span := otel.Tracer.Start(r.Context(), "PurchaseHttp.cancel")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	id := r.PathValue("id")

	purchase, err := in.Querier.FindPurchaseById(ctx, id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if err := in.cancelCascade(ctx, purchase); err != nil {
		slog.ErrorContext(ctx, "failed to cancel purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if purchase.CustomerEmail != "" {
		event, findErr := in.Querier.FindEventById(ctx, purchase.EventId)
		if findErr != nil {
			slog.ErrorContext(ctx, "failed to find event for notification", traceIdAttr, slog.Any(constant.LogFieldErr, findErr))
		} else {
			err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, model.SendNotificationEventMessage{
				To:      purchase.CustomerEmail,
				Subject: "Purchase Cancelled",
				Body: fmt.Sprintf(constant.NotificationPurchaseCancellationTemplate,
					purchase.CustomerName, event.Title, purchase.TotalAmount.StringFixed(2), purchase.VerificationCode),
			})
			if err != nil {
				slog.ErrorContext(ctx, "failed to publish cancellation notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			}
		}
	}

	slog.InfoContext(ctx, "purchase cancelled", traceIdAttr, slog.String(constant.LogFieldResponse, id), slog.String("reason", reason))

	writeJSONResponse(w, http.StatusOK, nil)
}

// cancelCascade cancels the purchase and its live tickets in one
// transaction and gives the freed seats back to capacity accounting.
func (in *PurchaseHttp) cancelCascade(ctx context.Context, purchase model.Purchase) error {
	tx, err := in.Db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.ErrorContext(ctx, "failed to rollback transaction", slog.Any(constant.LogFieldErr, err))
		}
	}()

	withTx := in.Querier.WithTx(tx)

	affected, err := withTx.CancelPurchase(ctx, purchase.Id)
	if err != nil {
		return err
	}

	if affected == 0 {
		return errs.ErrInvalidTransition
	}

	freed, err := withTx.CancelTicketsByPurchase(ctx, purchase.Id)
	if err != nil {
		return err
	}

	if freed > 0 {
		if err = withTx.AddEventSales(ctx, purchase.EventId, -freed); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	if freed > 0 {
		event, err := in.Querier.FindEventById(ctx, purchase.EventId)
		if err == nil && event.MaxCapacity > 0 {
			redisErr := in.Cache.IncrBy(ctx, fmt.Sprintf(constant.EventRemainingCapacityKey, purchase.EventId), int64(freed)).Err()
			if redisErr != nil {
				slog.ErrorContext(ctx, "failed to restore remaining capacity", slog.Any(constant.LogFieldErr, redisErr))
			}
		}
	}

	return nil
}

func (in *PurchaseHttp) expire(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "PurchaseHttp.expire")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "expire purchases receive request", traceIdAttr)

	stale, err := in.Querier.ListStalePurchases(ctx, in.sizeBulkExpire, in.TimeNow().Add(-in.expireAfter))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list stale purchases", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if len(stale) == 0 {
		slog.DebugContext(ctx, "no expirable purchases", traceIdAttr)
		writeJSONResponse(w, http.StatusOK, nil)
		return
	}

	for _, purchase := range stale {
		// Each purchase gets its own transaction. A purchase that moved on
		// since the listing affects zero rows and is skipped.
		if err := in.cancelCascade(ctx, purchase); err != nil {
			if errors.Is(err, errs.ErrInvalidTransition) {
				continue
			}
			slog.ErrorContext(ctx, "failed to expire purchase", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}

		if purchase.CustomerEmail == "" {
			continue
		}

		event, findErr := in.Querier.FindEventById(ctx, purchase.EventId)
		if findErr != nil {
			continue
		}

		err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, model.SendNotificationEventMessage{
			To:      purchase.CustomerEmail,
			Subject: "Purchase Cancelled",
			Body: fmt.Sprintf(constant.NotificationPurchaseCancellationTemplate,
				purchase.CustomerName, event.Title, purchase.TotalAmount.StringFixed(2), purchase.VerificationCode),
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to publish cancellation notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	slog.InfoContext(ctx, "expire purchases success", traceIdAttr, slog.Int(constant.LogFieldResponse, len(stale)))

	writeJSONResponse(w, http.StatusOK, nil)
}
