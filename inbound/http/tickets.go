package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/constant"
	"ticketera/common/errs"
	"ticketera/common/otel"
	"ticketera/model"
	"ticketera/outbound/qr"
	"ticketera/outbound/store"
)

type TicketHttp struct {
	Querier  *store.Queries
	Validate *validator.Validate

	secret string
}

func RegisterTicketHttp(mux *http.ServeMux, cfg *viper.Viper, querier *store.Queries, validate *validator.Validate) *TicketHttp {
	in := &TicketHttp{
		Querier:  querier,
		Validate: validate,
		secret:   cfg.GetString("auth.secret"),
	}

	doorRoles := []model.Role{model.RolePorteria, model.RoleBusiness, model.RoleAdmin}

	mux.HandleFunc("POST /api/tickets/validate", RequireRoles(in.secret, in.validate, doorRoles...))
	mux.HandleFunc("POST /api/tickets/use", RequireRoles(in.secret, in.use, doorRoles...))
	mux.HandleFunc("GET /api/tickets/lookup", RequireRoles(in.secret, in.lookup, doorRoles...))
	mux.HandleFunc("GET /api/events/{id}/ticket-stats", RequireRoles(in.secret, in.stats, model.RoleBusiness, model.RoleAdmin))
	mux.HandleFunc("GET /api/tickets/{id}/qr.png", in.qrImage)

	return in
}

func (in *TicketHttp) validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "TicketHttp.validate")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	claims := claimsFromCtx(ctx)

	ticket, err := in.Querier.FindTicketByVerificationCode(ctx, req.VerificationCode)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	// A code from another event is indistinguishable from an unknown code.
	if ticket.EventId != req.EventId {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	if claims.Role == model.RolePorteria && !claims.CanAccessEvent(ticket.EventId) {
		writeErrorResponse(w, errs.ErrForbidden)
		return
	}

	// Only tickets of a completed purchase pass the door.
	if err := in.requirePurchaseCompleted(ctx, ticket.PurchaseId); err != nil {
		writeErrorResponse(w, err)
		return
	}

	affected, err := in.Querier.ValidateTicket(ctx, ticket.Id, claims.UserId)
	if err != nil {
		slog.ErrorContext(ctx, "failed to validate ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		current, err := in.Querier.FindTicketById(ctx, ticket.Id)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}

		writeErrorResponse(w, &errs.HttpError{
			Code:    http.StatusConflict,
			Message: "Ticket already " + string(current.Status),
			Data:    current,
		})
		return
	}

	validated, err := in.Querier.FindTicketById(ctx, ticket.Id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "validate ticket success", traceIdAttr, slog.String(constant.LogFieldResponse, ticket.Id))

	writeJSONResponse(w, http.StatusOK, validated)
}

func (in *TicketHttp) use(w http.ResponseWriter, r *http.Request) {
	var req model.UseTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "TicketHttp.use")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	claims := claimsFromCtx(ctx)

	ticket, err := in.Querier.FindTicketById(ctx, req.TicketId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if ticket.EventId != req.EventId {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	if claims.Role == model.RolePorteria && !claims.CanAccessEvent(ticket.EventId) {
		writeErrorResponse(w, errs.ErrForbidden)
		return
	}

	if err := in.requirePurchaseCompleted(ctx, ticket.PurchaseId); err != nil {
		writeErrorResponse(w, err)
		return
	}

	affected, err := in.Querier.UseTicket(ctx, ticket.Id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to use ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		writeErrorResponse(w, errs.ErrInvalidTransition)
		return
	}

	slog.InfoContext(ctx, "use ticket success", traceIdAttr, slog.String(constant.LogFieldResponse, ticket.Id))

	writeJSONResponse(w, http.StatusOK, nil)
}

// requirePurchaseCompleted gates door transitions on the parent purchase:
// an unpaid or cancelled purchase never admits anyone.
func (in *TicketHttp) requirePurchaseCompleted(ctx context.Context, purchaseId string) error {
	purchase, err := in.Querier.FindPurchaseById(ctx, purchaseId)
	if err != nil {
		return err
	}

	if purchase.Status != model.PurchaseCompleted {
		return &errs.HttpError{
			Code:    http.StatusConflict,
			Message: "Purchase is " + string(purchase.Status),
		}
	}

	return nil
}

// lookup resolves a ticket by verification code or QR payload. Both keys
// answer with the same shape so the door scanner has a single code path.
func (in *TicketHttp) lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	qrPayload := r.URL.Query().Get("qr")

	var (
		ticket model.Ticket
		err    error
	)

	switch {
	case code != "":
		ticket, err = in.Querier.FindTicketByVerificationCode(r.Context(), code)
	case qrPayload != "":
		ticket, err = in.Querier.FindTicketByQrCode(r.Context(), qrPayload)
	default:
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "code or qr query parameter is required"})
		return
	}

	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	claims := claimsFromCtx(r.Context())
	if claims.Role == model.RolePorteria && !claims.CanAccessEvent(ticket.EventId) {
		writeErrorResponse(w, errs.ErrForbidden)
		return
	}

	writeJSONResponse(w, http.StatusOK, ticket)
}

func (in *TicketHttp) stats(w http.ResponseWriter, r *http.Request) {
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

	stats, err := in.Querier.GetEventTicketStats(r.Context(), eventId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

func (in *TicketHttp) qrImage(w http.ResponseWriter, r *http.Request) {
	ticket, err := in.Querier.FindTicketById(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	png, err := qr.RenderPNG(ticket.QrCode)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		slog.Error("failed to write qr image", slog.Any(constant.LogFieldErr, err))
	}
}
