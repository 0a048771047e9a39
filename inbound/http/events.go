package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/constant"
	"ticketera/common/contract"
	"ticketera/common/errs"
	"ticketera/common/otel"
	"ticketera/common/vars"
	"ticketera/model"
	"ticketera/outbound/store"
)

type EventHttp struct {
	Db        contract.DbConn
	Querier   *store.Queries
	Publisher jetstream.Publisher
	Validate  *validator.Validate

	secret string
}

func RegisterEventHttp(
	mux *http.ServeMux,
	cfg *viper.Viper,
	db contract.DbConn,
	querier *store.Queries,
	publisher jetstream.Publisher,
	validate *validator.Validate,
) *EventHttp {
	in := &EventHttp{
		Db:        db,
		Querier:   querier,
		Publisher: publisher,
		Validate:  validate,

		secret: cfg.GetString("auth.secret"),
	}

	mux.HandleFunc("GET /api/events", in.list)
	mux.HandleFunc("GET /api/events/{id}", in.get)
	mux.HandleFunc("POST /api/events", RequireRoles(in.secret, in.create, model.RoleBusiness))
	mux.HandleFunc("PUT /api/events/{id}", RequireRoles(in.secret, in.update, model.RoleBusiness))
	mux.HandleFunc("DELETE /api/events/{id}", RequireRoles(in.secret, in.remove, model.RoleBusiness))
	mux.HandleFunc("GET /api/my/events", RequireRoles(in.secret, in.listMine, model.RoleBusiness))

	mux.HandleFunc("GET /api/admin/events/pending", RequireRoles(in.secret, in.listPending, model.RoleAdmin))
	mux.HandleFunc("POST /api/events/{id}/approve", RequireRoles(in.secret, in.approve, model.RoleAdmin))
	mux.HandleFunc("POST /api/events/{id}/reject", RequireRoles(in.secret, in.reject, model.RoleAdmin))
	mux.HandleFunc("POST /api/events/{id}/resubmit", RequireRoles(in.secret, in.resubmit, model.RoleBusiness))

	return in
}

// list serves the public listing from the lock-free snapshot when the cron
// has populated it, otherwise straight from the store.
func (in *EventHttp) list(w http.ResponseWriter, r *http.Request) {
	if snapshot := vars.GetListing(); snapshot != nil {
		writeJSONResponse(w, http.StatusOK, snapshot)
		return
	}

	events, err := in.Querier.ListPublicEvents(r.Context())
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, events)
}

func (in *EventHttp) get(w http.ResponseWriter, r *http.Request) {
	event, err := in.Querier.FindEventById(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if !event.PubliclyVisible() {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	if err := in.Querier.HydrateEvent(r.Context(), &event); err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, event)
}

func (in *EventHttp) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "EventHttp.create")
	defer span.End()

	claims := claimsFromCtx(ctx)
	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "create event receive request", slog.String("title", req.Title), traceIdAttr)

	business, err := in.Querier.FindBusinessById(ctx, claims.BusinessId)
	if err != nil {
		slog.ErrorContext(ctx, "failed to find business", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	elements := req.SeatMapElements
	if req.CroquisTemplateId != "" {
		template, err := in.Querier.FindCroquisTemplateById(ctx, req.CroquisTemplateId)
		if err != nil {
			slog.ErrorContext(ctx, "failed to find croquis template", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}

		if template.BusinessId != claims.BusinessId {
			writeErrorResponse(w, errs.ErrForbidden)
			return
		}

		// Instantiation copies the layout; later template edits never touch
		// the event.
		elements = template.Elements
	}

	tx, err := in.Db.Begin(ctx)
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

	eventId := ulid.Make().String()
	err = withTx.InsertEvent(ctx, store.InsertEventParams{
		Id:           eventId,
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Time:         req.Time,
		Location:     req.Location,
		City:         req.City,
		Image:        req.Image,
		BusinessId:   claims.BusinessId,
		BusinessName: business.Name,
		MaxCapacity:  req.MaxCapacity,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert event", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	for _, sector := range req.Sectors {
		err = withTx.InsertEventSector(ctx, store.InsertEventSectorParams{
			Id:        ulid.Make().String(),
			EventId:   eventId,
			Name:      sector.Name,
			Color:     sector.Color,
			Capacity:  sector.Capacity,
			PriceType: sector.PriceType,
			BasePrice: sector.BasePrice,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to insert sector", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	for _, combo := range req.Combos {
		err = withTx.InsertEventCombo(ctx, store.InsertEventComboParams{
			Id:          ulid.Make().String(),
			EventId:     eventId,
			Name:        combo.Name,
			Description: combo.Description,
			Price:       combo.Price,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to insert combo", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	for _, text := range req.ReservationConditions {
		if err = withTx.InsertReservationCondition(ctx, ulid.Make().String(), eventId, text); err != nil {
			slog.ErrorContext(ctx, "failed to insert condition", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	for _, el := range elements {
		el.Id = ulid.Make().String()
		if err = withTx.InsertSeatMapElement(ctx, eventId, el); err != nil {
			slog.ErrorContext(ctx, "failed to insert seat map element", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	if req.CroquisTemplateId != "" {
		if err = withTx.IncrementCroquisUsage(ctx, req.CroquisTemplateId); err != nil {
			slog.ErrorContext(ctx, "failed to bump croquis usage", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			writeErrorResponse(w, err)
			return
		}
	}

	if err = tx.Commit(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to commit transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "event created", traceIdAttr, slog.String(constant.LogFieldResponse, eventId))

	event, err := in.Querier.FindEventById(ctx, eventId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if err := in.Querier.HydrateEvent(ctx, &event); err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, event)
}

func (in *EventHttp) update(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.UpdateEvent(r.Context(), store.UpdateEventParams{
		Id:          r.PathValue("id"),
		BusinessId:  claims.BusinessId,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		City:        req.City,
		Image:       req.Image,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}

func (in *EventHttp) remove(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.SoftDeleteEvent(r.Context(), r.PathValue("id"), claims.BusinessId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}

func (in *EventHttp) listMine(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	events, err := in.Querier.ListEventsByBusiness(r.Context(), claims.BusinessId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, events)
}

func (in *EventHttp) listPending(w http.ResponseWriter, r *http.Request) {
	events, err := in.Querier.ListPendingEvents(r.Context())
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, events)
}

func (in *EventHttp) approve(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "EventHttp.approve")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	id := r.PathValue("id")

	affected, err := in.Querier.ApproveEvent(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to approve event", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		slog.DebugContext(ctx, "event is not pending", traceIdAttr)
		writeErrorResponse(w, errs.ErrInvalidTransition)
		return
	}

	event, business, err := in.eventWithBusiness(ctx, id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, model.SendNotificationEventMessage{
		To:      business.Email,
		Subject: "Event Approved",
		Body:    fmt.Sprintf(constant.NotificationEventApprovedTemplate, business.Name, event.Title),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish approval notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "event approved", traceIdAttr, slog.String(constant.LogFieldResponse, id))

	writeJSONResponse(w, http.StatusOK, model.ApprovalResponse{
		EventId:       id,
		Status:        model.EventStatusApproved,
		BusinessPhone: business.Phone,
	})
}

func (in *EventHttp) reject(w http.ResponseWriter, r *http.Request) {
	var req model.RejectEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "EventHttp.reject")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	id := r.PathValue("id")

	affected, err := in.Querier.RejectEvent(ctx, id, req.Reason)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reject event", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if affected == 0 {
		slog.DebugContext(ctx, "event is not pending", traceIdAttr)
		writeErrorResponse(w, errs.ErrInvalidTransition)
		return
	}

	event, business, err := in.eventWithBusiness(ctx, id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	err = common.PublishMessage(ctx, in.Publisher, constant.SubjectSendNotification, model.SendNotificationEventMessage{
		To:      business.Email,
		Subject: "Event Rejected",
		Body:    fmt.Sprintf(constant.NotificationEventRejectedTemplate, business.Name, event.Title, req.Reason),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish rejection notification", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "event rejected", traceIdAttr, slog.String(constant.LogFieldResponse, id))

	writeJSONResponse(w, http.StatusOK, model.ApprovalResponse{
		EventId:       id,
		Status:        model.EventStatusRejected,
		BusinessPhone: business.Phone,
	})
}

func (in *EventHttp) resubmit(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.ResubmitEvent(r.Context(), r.PathValue("id"), claims.BusinessId)
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

func (in *EventHttp) eventWithBusiness(ctx context.Context, eventId string) (model.Event, model.Business, error) {
	event, err := in.Querier.FindEventById(ctx, eventId)
	if err != nil {
		return model.Event{}, model.Business{}, err
	}

	business, err := in.Querier.FindBusinessById(ctx, event.BusinessId)
	if err != nil {
		return model.Event{}, model.Business{}, err
	}

	return event, business, nil
}
