package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"ticketera/common/errs"
	"ticketera/model"
	"ticketera/outbound/store"
)

type CroquisHttp struct {
	Querier  *store.Queries
	Validate *validator.Validate

	secret string
}

func RegisterCroquisHttp(mux *http.ServeMux, cfg *viper.Viper, querier *store.Queries, validate *validator.Validate) *CroquisHttp {
	in := &CroquisHttp{
		Querier:  querier,
		Validate: validate,
		secret:   cfg.GetString("auth.secret"),
	}

	mux.HandleFunc("GET /api/croquis", RequireRoles(in.secret, in.list, model.RoleBusiness))
	mux.HandleFunc("POST /api/croquis", RequireRoles(in.secret, in.create, model.RoleBusiness))
	mux.HandleFunc("PUT /api/croquis/{id}", RequireRoles(in.secret, in.update, model.RoleBusiness))
	mux.HandleFunc("DELETE /api/croquis/{id}", RequireRoles(in.secret, in.delete, model.RoleBusiness))

	return in
}

func (in *CroquisHttp) list(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	templates, err := in.Querier.ListCroquisTemplatesByBusiness(r.Context(), claims.BusinessId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, templates)
}

func (in *CroquisHttp) create(w http.ResponseWriter, r *http.Request) {
	req, ok := in.decodeRequest(w, r)
	if !ok {
		return
	}

	claims := claimsFromCtx(r.Context())
	id := ulid.Make().String()

	err := in.Querier.InsertCroquisTemplate(r.Context(), store.SaveCroquisTemplateParams{
		Id:              id,
		Name:            req.Name,
		Description:     req.Description,
		BusinessId:      claims.BusinessId,
		Elements:        req.Elements,
		Sectors:         req.Sectors,
		CanvasWidth:     req.CanvasSize.Width,
		CanvasHeight:    req.CanvasSize.Height,
		BackgroundImage: req.BackgroundImage,
		IsDefault:       req.IsDefault,
	})
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"id": id})
}

func (in *CroquisHttp) update(w http.ResponseWriter, r *http.Request) {
	req, ok := in.decodeRequest(w, r)
	if !ok {
		return
	}

	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.UpdateCroquisTemplate(r.Context(), store.SaveCroquisTemplateParams{
		Id:              r.PathValue("id"),
		Name:            req.Name,
		Description:     req.Description,
		BusinessId:      claims.BusinessId,
		Elements:        req.Elements,
		Sectors:         req.Sectors,
		CanvasWidth:     req.CanvasSize.Width,
		CanvasHeight:    req.CanvasSize.Height,
		BackgroundImage: req.BackgroundImage,
		IsDefault:       req.IsDefault,
	})
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	// The business predicate in the update makes a foreign template look
	// exactly like a missing one.
	if affected == 0 {
		writeErrorResponse(w, errs.ErrNotFound)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}

func (in *CroquisHttp) delete(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())

	affected, err := in.Querier.DeleteCroquisTemplate(r.Context(), r.PathValue("id"), claims.BusinessId)
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

func (in *CroquisHttp) decodeRequest(w http.ResponseWriter, r *http.Request) (model.SaveCroquisTemplateRequest, bool) {
	var req model.SaveCroquisTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return req, false
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return req, false
	}

	return req, true
}
