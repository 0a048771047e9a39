package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/auth"
	"ticketera/common/constant"
	"ticketera/common/contract"
	"ticketera/common/errs"
	"ticketera/common/otel"
	"ticketera/model"
	"ticketera/outbound/store"
)

type BusinessHttp struct {
	Db       contract.DbConn
	Querier  *store.Queries
	Validate *validator.Validate

	secret string
}

func RegisterBusinessHttp(mux *http.ServeMux, cfg *viper.Viper, db contract.DbConn, querier *store.Queries, validate *validator.Validate) *BusinessHttp {
	in := &BusinessHttp{
		Db:       db,
		Querier:  querier,
		Validate: validate,

		secret: cfg.GetString("auth.secret"),
	}

	mux.HandleFunc("GET /api/businesses", RequireRoles(in.secret, in.list, model.RoleAdmin))
	mux.HandleFunc("POST /api/businesses", RequireRoles(in.secret, in.create, model.RoleAdmin))
	mux.HandleFunc("GET /api/businesses/{id}", in.get)
	mux.HandleFunc("PUT /api/businesses/{id}", RequireRoles(in.secret, in.update, model.RoleBusiness, model.RoleAdmin))

	return in
}

func (in BusinessHttp) list(w http.ResponseWriter, r *http.Request) {
	businesses, err := in.Querier.ListBusinesses(r.Context())
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, businesses)
}

func (in BusinessHttp) get(w http.ResponseWriter, r *http.Request) {
	business, err := in.Querier.FindBusinessById(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, business)
}

// create provisions a tenant: the business row and its owning user in one
// transaction, so a half-created tenant can never log in.
func (in BusinessHttp) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "BusinessHttp.create")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	claims := claimsFromCtx(ctx)

	exists, err := in.Querier.UserEmailExists(ctx, req.OwnerEmail)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check owner email", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if exists {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusConflict, Message: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.OwnerPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
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

	businessId := ulid.Make().String()
	ownerId := ulid.Make().String()

	err = withTx.InsertUser(ctx, store.InsertUserParams{
		Id:           ownerId,
		Email:        req.OwnerEmail,
		PasswordHash: hash,
		Name:         req.OwnerName,
		Role:         model.RoleBusiness,
		BusinessId:   businessId,
		CreatedBy:    claims.UserId,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert owner user", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	err = withTx.InsertBusiness(ctx, store.InsertBusinessParams{
		Id:          businessId,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
		OwnerId:     ownerId,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert business", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if err = tx.Commit(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to commit transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "business created", traceIdAttr, slog.String(constant.LogFieldResponse, businessId))

	writeJSONResponse(w, http.StatusOK, model.Business{
		Id:          businessId,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
		OwnerId:     ownerId,
	})
}

func (in BusinessHttp) update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	claims := claimsFromCtx(r.Context())
	id := r.PathValue("id")

	if claims.Role == model.RoleBusiness && claims.BusinessId != id {
		writeErrorResponse(w, errs.ErrForbidden)
		return
	}

	affected, err := in.Querier.UpdateBusiness(r.Context(), store.UpdateBusinessParams{
		Id:                  id,
		Name:                req.Name,
		Phone:               req.Phone,
		Address:             req.Address,
		Logo:                req.Logo,
		Description:         req.Description,
		PaymentQrUrl:        req.PaymentQrUrl,
		PaymentInstructions: req.PaymentInstructions,
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
