package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"ticketera/common"
	"ticketera/common/auth"
	"ticketera/common/constant"
	"ticketera/common/errs"
	"ticketera/common/otel"
	"ticketera/model"
	"ticketera/outbound/store"
)

type AuthHttp struct {
	Querier  *store.Queries
	Validate *validator.Validate

	secret   string
	tokenTTL time.Duration
}

func RegisterAuthHttp(mux *http.ServeMux, cfg *viper.Viper, querier *store.Queries, validate *validator.Validate) *AuthHttp {
	in := &AuthHttp{
		Querier:  querier,
		Validate: validate,

		secret:   cfg.GetString("auth.secret"),
		tokenTTL: cfg.GetDuration("auth.token_ttl"),
	}

	mux.HandleFunc("POST /api/auth/signup", in.signup)
	mux.HandleFunc("POST /api/auth/login", in.login)
	mux.HandleFunc("GET /api/auth/me", RequireRoles(in.secret, in.me))

	mux.HandleFunc("POST /api/porteria", RequireRoles(in.secret, in.createPorteria, model.RoleBusiness))
	mux.HandleFunc("GET /api/porteria", RequireRoles(in.secret, in.listPorteria, model.RoleBusiness))
	mux.HandleFunc("PUT /api/porteria/{id}", RequireRoles(in.secret, in.updatePorteria, model.RoleBusiness))
	mux.HandleFunc("DELETE /api/porteria/{id}", RequireRoles(in.secret, in.deletePorteria, model.RoleBusiness))

	return in
}

func (in AuthHttp) signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "AuthHttp.signup")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "signup receive request", slog.String("email", req.Email), traceIdAttr)

	exists, err := in.Querier.UserEmailExists(ctx, req.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check email", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if exists {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusConflict, Message: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	user := model.User{
		Id:    ulid.Make().String(),
		Email: req.Email,
		Name:  req.Name,
		Role:  model.RoleCustomer,
	}

	err = in.Querier.InsertUser(ctx, store.InsertUserParams{
		Id:           user.Id,
		Email:        user.Email,
		PasswordHash: hash,
		Name:         user.Name,
		Role:         user.Role,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert user", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	token, err := auth.GenerateToken(in.secret, user, in.tokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate token", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "signup success", traceIdAttr, slog.String(constant.LogFieldResponse, user.Id))

	writeJSONResponse(w, http.StatusOK, model.LoginResponse{Token: token, User: user})
}

func (in AuthHttp) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "AuthHttp.login")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	user, err := in.Querier.FindUserByEmail(ctx, req.Email)
	if err != nil && err != errs.ErrNotFound {
		slog.ErrorContext(ctx, "failed to find user", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	// Unknown email and wrong password answer identically, so the endpoint
	// cannot be used to enumerate accounts.
	if err == errs.ErrNotFound || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.DebugContext(ctx, "login rejected", traceIdAttr)
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusUnauthorized, Message: "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(in.secret, user, in.tokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate token", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "login success", traceIdAttr, slog.String(constant.LogFieldResponse, user.Id))

	writeJSONResponse(w, http.StatusOK, model.LoginResponse{Token: token, User: user})
}

func (in AuthHttp) me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	user, err := in.Querier.FindUserById(r.Context(), claims.UserId)
	if err != nil {
		// A deleted user with a live token is logged out, not errored.
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusUnauthorized, Message: "Session expired"})
		return
	}

	writeJSONResponse(w, http.StatusOK, user)
}

func (in AuthHttp) createPorteria(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePorteriaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "AuthHttp.createPorteria")
	defer span.End()

	claims := claimsFromCtx(ctx)
	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	exists, err := in.Querier.UserEmailExists(ctx, req.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check email", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if exists {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusConflict, Message: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	user := model.User{
		Id:            ulid.Make().String(),
		Email:         req.Email,
		Name:          req.Name,
		Role:          model.RolePorteria,
		BusinessId:    claims.BusinessId,
		CreatedBy:     claims.UserId,
		AllowedEvents: req.AllowedEvents,
	}

	err = in.Querier.InsertUser(ctx, store.InsertUserParams{
		Id:            user.Id,
		Email:         user.Email,
		PasswordHash:  hash,
		Name:          user.Name,
		Role:          user.Role,
		BusinessId:    user.BusinessId,
		CreatedBy:     user.CreatedBy,
		AllowedEvents: user.AllowedEvents,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert porteria user", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "porteria user created", traceIdAttr, slog.String(constant.LogFieldResponse, user.Id))

	writeJSONResponse(w, http.StatusOK, user)
}

func (in AuthHttp) listPorteria(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	users, err := in.Querier.ListPorteriaByBusiness(r.Context(), claims.BusinessId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, users)
}

func (in AuthHttp) updatePorteria(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AllowedEvents []string `json:"allowed_events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.UpdatePorteriaAllowedEvents(r.Context(), r.PathValue("id"), claims.BusinessId, req.AllowedEvents)
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

func (in AuthHttp) deletePorteria(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.DeletePorteriaUser(r.Context(), r.PathValue("id"), claims.BusinessId)
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
