package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"ticketera/common/errs"
	"ticketera/model"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var message string
	var data any
	var httpErr *errs.HttpError
	var validationErr validator.ValidationErrors

	switch {
	case errors.As(err, &httpErr):
		message = httpErr.Message
		data = httpErr.Data
		w.WriteHeader(httpErr.Code)
	case errors.As(err, &validationErr):
		message = "Validation failed"
		w.WriteHeader(http.StatusBadRequest)

		validationErrors := make(map[string]string)
		for _, fieldErr := range validationErr {
			validationErrors[fieldErr.Field()] = fieldErr.Tag()
		}

		data = validationErrors
	case errors.Is(err, errs.ErrNotFound):
		message = "Not found"
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, errs.ErrForbidden):
		message = "Forbidden"
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, errs.ErrInvalidTransition):
		message = "Invalid state transition"
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, errs.ErrSoldOut):
		message = "Sold out"
		w.WriteHeader(http.StatusConflict)
	default:
		message = "Internal Server Error"
		w.WriteHeader(http.StatusInternalServerError)
	}

	errorResponse := model.ErrorResponse{Error: message, Data: data}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
