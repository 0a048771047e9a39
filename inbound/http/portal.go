package http

import (
	"net/http"

	"ticketera/model"
	"ticketera/outbound/store"
)

// PortalHttp serves the customer-facing purchase portal. It is keyed only
// by the purchase verification code, so it can never enumerate nor reach
// another customer's purchase.
type PortalHttp struct {
	Querier *store.Queries
}

func RegisterPortalHttp(mux *http.ServeMux, querier *store.Queries) *PortalHttp {
	in := &PortalHttp{Querier: querier}

	mux.HandleFunc("GET /api/portal/{code}", in.get)

	return in
}

func (in *PortalHttp) get(w http.ResponseWriter, r *http.Request) {
	purchase, err := in.Querier.FindPurchaseByVerificationCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	tickets, err := in.Querier.ListTicketsByPurchase(r.Context(), purchase.Id)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	event, err := in.Querier.FindEventById(r.Context(), purchase.EventId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	business, err := in.Querier.FindBusinessById(r.Context(), event.BusinessId)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, model.PortalResponse{
		Purchase: purchase,
		Tickets:  tickets,
		Event:    event,
		Business: business,
	})
}
