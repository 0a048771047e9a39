package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	"ticketera/common/auth"
	"ticketera/model"
	"ticketera/outbound/store"
)

type TicketHttpTestSuite struct {
	suite.Suite

	Cfg *viper.Viper

	Querier *store.Queries
	PgxMock pgxmock.PgxPoolIface

	Validate *validator.Validate
}

func (s *TicketHttpTestSuite) SetupTest() {
	pool, err := pgxmock.NewPool()
	if err != nil {
		s.T().Fatalf("failed to create pgxmock pool: %v", err)
	}

	s.PgxMock = pool
	s.Querier = store.New(pool)
	s.Validate = validator.New()

	s.Cfg = viper.New()
	s.Cfg.Set("auth.secret", "test-secret")

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func (s *TicketHttpTestSuite) TearDownTest() {
	s.PgxMock.Close()
}

func TestTicketHttpTestSuite(t *testing.T) {
	suite.Run(t, new(TicketHttpTestSuite))
}

var ticketColumnNames = []string{
	"id", "purchase_id", "event_id", "sector_name", "sector_color", "quantity", "unit_price", "total_price",
	"ticket_type", "verification_code", "qr_code", "status", "validated_by", "validated_at",
}

func pendingTicketRow(id, eventId string) *pgxmock.Rows {
	return pgxmock.NewRows(ticketColumnNames).AddRow(
		id, "01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, "General", "#ff0000", int32(2),
		decimal.RequireFromString("50.00"), decimal.RequireFromString("100.00"),
		model.TicketTypeCliente, "AB12CD34", "TKT-ZZZZZZZZZZZZZZZZZZZZ", model.TicketPending,
		"", pgtype.Timestamp{},
	)
}

func (s *TicketHttpTestSuite) requestWithClaims(method, target, body string, claims auth.Claims) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), claimsCtxKey{}, claims))
}

func (s *TicketHttpTestSuite) parentPurchaseRows(purchaseId, eventId string, status model.PurchaseStatus) *pgxmock.Rows {
	return pgxmock.NewRows(purchaseColumnNames).AddRow(
		purchaseId, eventId, "Maria Lopez", "+59170000000", "",
		decimal.RequireFromString("100.00"), model.PaymentMethodQr, "proof.jpg",
		status, "ZZ99YY88", true, true,
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	)
}

func (s *TicketHttpTestSuite) TestValidate() {
	const (
		eventId  = "01EVTAAAAAAAAAAAAAAAAAAAAA"
		ticketId = "01TKTAAAAAAAAAAAAAAAAAAAAA"
	)

	porteria := auth.Claims{UserId: "01USRAAAAAAAAAAAAAAAAAAAAA", Role: model.RolePorteria, AllowedEvents: []string{eventId}}
	reqBody := `{"verification_code": "AB12CD34", "event_id": "` + eventId + `"}`

	tests := []struct {
		name           string
		reqBody        string
		claims         auth.Claims
		setupMock      func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "code too short",
			reqBody:        `{"verification_code": "AB12", "event_id": "` + eventId + `"}`,
			claims:         porteria,
			setupMock:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"VerificationCode":"len"}}`,
		},
		{
			name:    "unknown code",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pgxmock.NewRows(ticketColumnNames))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Not found"}`,
		},
		{
			name:    "code belongs to another event",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, "01EVTBBBBBBBBBBBBBBBBBBBBB"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Not found"}`,
		},
		{
			name:    "porteria not assigned to event",
			reqBody: reqBody,
			claims:  auth.Claims{UserId: "01USRAAAAAAAAAAAAAAAAAAAAA", Role: model.RolePorteria, AllowedEvents: []string{"01EVTCCCCCCCCCCCCCCCCCCCCC"}},
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"error":"Forbidden"}`,
		},
		{
			name:    "unpaid purchase is rejected at the door",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchasePendingPayment))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"Purchase is pending_payment"}`,
		},
		{
			name:    "cancelled purchase is rejected at the door",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCancelled))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"Purchase is cancelled"}`,
		},
		{
			name:    "already validated",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCompleted))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'validated'`).
					WithArgs(ticketId, "01USRAAAAAAAAAAAAAAAAAAAAA").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				s.PgxMock.ExpectQuery(`FROM tickets WHERE id = \$1`).
					WithArgs(ticketId).
					WillReturnRows(pgxmock.NewRows(ticketColumnNames).AddRow(
						ticketId, "01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, "General", "#ff0000", int32(2),
						decimal.RequireFromString("50.00"), decimal.RequireFromString("100.00"),
						model.TicketTypeCliente, "AB12CD34", "TKT-ZZZZZZZZZZZZZZZZZZZZ", model.TicketValidated,
						"01USRBBBBBBBBBBBBBBBBBBBBB", pgtype.Timestamp{Time: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), Valid: true},
					))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:    "validate error",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCompleted))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'validated'`).
					WithArgs(ticketId, "01USRAAAAAAAAAAAAAAAAAAAAA").
					WillReturnError(fmt.Errorf("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Internal Server Error"}`,
		},
		{
			name:    "success",
			reqBody: reqBody,
			claims:  porteria,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
					WithArgs("AB12CD34").
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCompleted))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'validated'`).
					WithArgs(ticketId, "01USRAAAAAAAAAAAAAAAAAAAAA").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectQuery(`FROM tickets WHERE id = \$1`).
					WithArgs(ticketId).
					WillReturnRows(pgxmock.NewRows(ticketColumnNames).AddRow(
						ticketId, "01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, "General", "#ff0000", int32(2),
						decimal.RequireFromString("50.00"), decimal.RequireFromString("100.00"),
						model.TicketTypeCliente, "AB12CD34", "TKT-ZZZZZZZZZZZZZZZZZZZZ", model.TicketValidated,
						"01USRAAAAAAAAAAAAAAAAAAAAA", pgtype.Timestamp{Time: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), Valid: true},
					))
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"validated"`,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

			tc.setupMock()

			req := s.requestWithClaims(http.MethodPost, "/api/tickets/validate", tc.reqBody, tc.claims)
			w := httptest.NewRecorder()

			ticketHttp.validate(w, req)

			s.Equal(tc.expectedStatus, w.Code)

			if tc.expectedBody != "" {
				if tc.expectedStatus == http.StatusOK {
					s.Contains(w.Body.String(), tc.expectedBody)
				} else {
					s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
				}
			}

			s.NoError(s.PgxMock.ExpectationsWereMet())
		})
	}
}

func (s *TicketHttpTestSuite) TestUse() {
	const (
		eventId  = "01EVTAAAAAAAAAAAAAAAAAAAAA"
		ticketId = "01TKTAAAAAAAAAAAAAAAAAAAAA"
	)

	admin := auth.Claims{UserId: "01USRADMAAAAAAAAAAAAAAAAAA", Role: model.RoleAdmin}
	reqBody := `{"ticket_id": "` + ticketId + `", "event_id": "` + eventId + `"}`

	validatedRow := func() *pgxmock.Rows {
		return pgxmock.NewRows(ticketColumnNames).AddRow(
			ticketId, "01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, "General", "#ff0000", int32(2),
			decimal.RequireFromString("50.00"), decimal.RequireFromString("100.00"),
			model.TicketTypeCliente, "AB12CD34", "TKT-ZZZZZZZZZZZZZZZZZZZZ", model.TicketValidated,
			"01USRAAAAAAAAAAAAAAAAAAAAA", pgtype.Timestamp{Time: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), Valid: true},
		)
	}

	tests := []struct {
		name           string
		setupMock      func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "not validated yet",
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE id = \$1`).
					WithArgs(ticketId).
					WillReturnRows(pendingTicketRow(ticketId, eventId))
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCompleted))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'used' WHERE id = \$1 AND status = 'validated'`).
					WithArgs(ticketId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"Invalid state transition"}`,
		},
		{
			name: "success",
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM tickets WHERE id = \$1`).
					WithArgs(ticketId).
					WillReturnRows(validatedRow())
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs("01PRCAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.parentPurchaseRows("01PRCAAAAAAAAAAAAAAAAAAAAA", eventId, model.PurchaseCompleted))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'used' WHERE id = \$1 AND status = 'validated'`).
					WithArgs(ticketId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

			tc.setupMock()

			req := s.requestWithClaims(http.MethodPost, "/api/tickets/use", reqBody, admin)
			w := httptest.NewRecorder()

			ticketHttp.use(w, req)

			s.Equal(tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
			}

			s.NoError(s.PgxMock.ExpectationsWereMet())
		})
	}
}

func (s *TicketHttpTestSuite) TestLookup() {
	const (
		eventId  = "01EVTAAAAAAAAAAAAAAAAAAAAA"
		ticketId = "01TKTAAAAAAAAAAAAAAAAAAAAA"
	)

	admin := auth.Claims{UserId: "01USRADMAAAAAAAAAAAAAAAAAA", Role: model.RoleAdmin}

	s.Run("missing keys", func() {
		ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

		req := s.requestWithClaims(http.MethodGet, "/api/tickets/lookup", "", admin)
		w := httptest.NewRecorder()

		ticketHttp.lookup(w, req)

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("by code", func() {
		ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

		s.PgxMock.ExpectQuery(`FROM tickets WHERE verification_code = \$1`).
			WithArgs("AB12CD34").
			WillReturnRows(pendingTicketRow(ticketId, eventId))

		req := s.requestWithClaims(http.MethodGet, "/api/tickets/lookup?code=AB12CD34", "", admin)
		w := httptest.NewRecorder()

		ticketHttp.lookup(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"verification_code":"AB12CD34"`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})

	s.Run("by qr answers the same shape", func() {
		ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

		s.PgxMock.ExpectQuery(`FROM tickets WHERE qr_code = \$1`).
			WithArgs("TKT-ZZZZZZZZZZZZZZZZZZZZ").
			WillReturnRows(pendingTicketRow(ticketId, eventId))

		req := s.requestWithClaims(http.MethodGet, "/api/tickets/lookup?qr=TKT-ZZZZZZZZZZZZZZZZZZZZ", "", admin)
		w := httptest.NewRecorder()

		ticketHttp.lookup(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"verification_code":"AB12CD34"`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}

func (s *TicketHttpTestSuite) TestStats() {
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	s.Run("admin reads any event", func() {
		ticketHttp := RegisterTicketHttp(http.NewServeMux(), s.Cfg, s.Querier, s.Validate)

		s.PgxMock.ExpectQuery(`FROM tickets WHERE event_id = \$1`).
			WithArgs(eventId).
			WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "validated", "used", "cancelled"}).
				AddRow(int64(10), int64(4), int64(3), int64(2), int64(1)))

		req := s.requestWithClaims(http.MethodGet, "/api/events/"+eventId+"/ticket-stats", "",
			auth.Claims{Role: model.RoleAdmin})
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		ticketHttp.stats(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"total":10`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}
