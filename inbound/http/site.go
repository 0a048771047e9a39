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

type SiteHttp struct {
	Querier  *store.Queries
	Validate *validator.Validate

	secret string
}

func RegisterSiteHttp(mux *http.ServeMux, cfg *viper.Viper, querier *store.Queries, validate *validator.Validate) *SiteHttp {
	in := &SiteHttp{
		Querier:  querier,
		Validate: validate,
		secret:   cfg.GetString("auth.secret"),
	}

	mux.HandleFunc("GET /api/carousel", in.listCarousel)
	mux.HandleFunc("GET /api/site-config", in.getConfig)

	mux.HandleFunc("POST /api/carousel", RequireRoles(in.secret, in.addCarousel, model.RoleAdmin))
	mux.HandleFunc("DELETE /api/carousel/{id}", RequireRoles(in.secret, in.deleteCarousel, model.RoleAdmin))
	mux.HandleFunc("PUT /api/site-config", RequireRoles(in.secret, in.putConfig, model.RoleAdmin))

	return in
}

func (in *SiteHttp) listCarousel(w http.ResponseWriter, r *http.Request) {
	images, err := in.Querier.ListCarouselImages(r.Context())
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, images)
}

func (in *SiteHttp) addCarousel(w http.ResponseWriter, r *http.Request) {
	var req model.AddCarouselImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	id := ulid.Make().String()
	if err := in.Querier.InsertCarouselImage(r.Context(), id, req.Url, req.Caption); err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"id": id})
}

func (in *SiteHttp) deleteCarousel(w http.ResponseWriter, r *http.Request) {
	affected, err := in.Querier.DeleteCarouselImage(r.Context(), r.PathValue("id"))
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

// getConfig answers an empty config instead of 404 so a fresh install
// renders with defaults until an admin saves one.
func (in *SiteHttp) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := in.Querier.GetSiteConfig(r.Context())
	if err != nil && err != errs.ErrNotFound {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cfg)
}

func (in *SiteHttp) putConfig(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSiteConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	err := in.Querier.UpsertSiteConfig(r.Context(), model.SiteConfig{
		SiteName:     req.SiteName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		AboutText:    req.AboutText,
		FooterText:   req.FooterText,
	})
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}
