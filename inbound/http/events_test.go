package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ticketera/common/auth"
	"ticketera/common/constant"
	jetsteamMock "ticketera/common/jetstream/mocks"
	"ticketera/common/vars"
	"ticketera/model"
	"ticketera/outbound/store"
)

type EventHttpTestSuite struct {
	suite.Suite

	Cfg *viper.Viper

	Querier   *store.Queries
	PgxMock   pgxmock.PgxPoolIface
	Publisher *jetsteamMock.MockPublisher

	Validate *validator.Validate
}

func (s *EventHttpTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	pool, err := pgxmock.NewPool()
	if err != nil {
		s.T().Fatalf("failed to create pgxmock pool: %v", err)
	}

	s.PgxMock = pool
	s.Querier = store.New(pool)
	s.Publisher = jetsteamMock.NewMockPublisher(ctrl)
	s.Validate = validator.New()

	s.Cfg = viper.New()
	s.Cfg.Set("auth.secret", "test-secret")

	vars.SetListing(nil)

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func (s *EventHttpTestSuite) TearDownTest() {
	s.PgxMock.Close()
	vars.SetListing(nil)
}

func TestEventHttpTestSuite(t *testing.T) {
	suite.Run(t, new(EventHttpTestSuite))
}

func (s *EventHttpTestSuite) newEventHttp() *EventHttp {
	return RegisterEventHttp(http.NewServeMux(), s.Cfg, s.PgxMock, s.Querier, s.Publisher, s.Validate)
}

func (s *EventHttpTestSuite) eventRows(id string, status model.EventStatus) *pgxmock.Rows {
	return pgxmock.NewRows(eventColumnNames).AddRow(
		id, "Rock Night", "A loud one", "2026-10-01", "20:00", "Teatro Gran Rex", "La Paz", "",
		"01BIZAAAAAAAAAAAAAAAAAAAAA", "Best Events", int32(100), int32(0), true, status, "",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	)
}

func (s *EventHttpTestSuite) businessRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "address", "logo", "description",
		"owner_id", "payment_qr_url", "payment_instructions",
	}).AddRow(
		"01BIZAAAAAAAAAAAAAAAAAAAAA", "Best Events", "contact@bestevents.bo", "+59171111111", "", "", "",
		"01USROWNAAAAAAAAAAAAAAAAAA", "", "",
	)
}

func (s *EventHttpTestSuite) TestList() {
	s.Run("serves the snapshot when populated", func() {
		eventHttp := s.newEventHttp()

		vars.SetListing([]model.Event{{Id: "01EVTAAAAAAAAAAAAAAAAAAAAA", Title: "Rock Night", Status: model.EventStatusApproved}})

		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		w := httptest.NewRecorder()

		eventHttp.list(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"title":"Rock Night"`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})

	s.Run("falls back to the store", func() {
		eventHttp := s.newEventHttp()

		vars.SetListing(nil)
		s.PgxMock.ExpectQuery(`FROM events`).
			WillReturnRows(s.eventRows("01EVTAAAAAAAAAAAAAAAAAAAAA", model.EventStatusApproved))

		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		w := httptest.NewRecorder()

		eventHttp.list(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"title":"Rock Night"`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}

func (s *EventHttpTestSuite) TestGet() {
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	s.Run("pending event is hidden", func() {
		eventHttp := s.newEventHttp()

		s.PgxMock.ExpectQuery(`FROM events WHERE id = \$1`).
			WithArgs(eventId).
			WillReturnRows(s.eventRows(eventId, model.EventStatusPending))

		req := httptest.NewRequest(http.MethodGet, "/api/events/"+eventId, nil)
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		eventHttp.get(w, req)

		s.Equal(http.StatusNotFound, w.Code)
		s.Equal(`{"error":"Not found"}`, strings.TrimSpace(w.Body.String()))
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}

func (s *EventHttpTestSuite) TestApprove() {
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	tests := []struct {
		name           string
		setupMock      func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "event is not pending",
			setupMock: func() {
				s.PgxMock.ExpectExec(`UPDATE events SET status = 'approved'`).
					WithArgs(eventId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"Invalid state transition"}`,
		},
		{
			name: "success notifies the business",
			setupMock: func() {
				s.PgxMock.ExpectExec(`UPDATE events SET status = 'approved'`).
					WithArgs(eventId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectQuery(`FROM events WHERE id = \$1`).
					WithArgs(eventId).
					WillReturnRows(s.eventRows(eventId, model.EventStatusApproved))
				s.PgxMock.ExpectQuery(`FROM businesses WHERE id = \$1`).
					WithArgs("01BIZAAAAAAAAAAAAAAAAAAAAA").
					WillReturnRows(s.businessRows())

				s.Publisher.EXPECT().Publish(
					gomock.Any(),
					constant.SubjectSendNotification,
					gomock.Any(),
				).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"approved"`,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			eventHttp := s.newEventHttp()

			tc.setupMock()

			req := httptest.NewRequest(http.MethodPost, "/api/events/"+eventId+"/approve", nil)
			req.SetPathValue("id", eventId)
			w := httptest.NewRecorder()

			eventHttp.approve(w, req)

			s.Equal(tc.expectedStatus, w.Code)

			if tc.expectedStatus == http.StatusOK {
				s.Contains(w.Body.String(), tc.expectedBody)
			} else {
				s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
			}

			s.NoError(s.PgxMock.ExpectationsWereMet())
		})
	}
}

func (s *EventHttpTestSuite) TestReject() {
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	s.Run("reason is required", func() {
		eventHttp := s.newEventHttp()

		req := httptest.NewRequest(http.MethodPost, "/api/events/"+eventId+"/reject", strings.NewReader(`{}`))
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		eventHttp.reject(w, req)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(`{"error":"Validation failed","data":{"Reason":"required"}}`, strings.TrimSpace(w.Body.String()))
	})

	s.Run("success stores the reason", func() {
		eventHttp := s.newEventHttp()

		s.PgxMock.ExpectExec(`UPDATE events SET status = 'rejected'`).
			WithArgs(eventId, "Blurry venue permit").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		s.PgxMock.ExpectQuery(`FROM events WHERE id = \$1`).
			WithArgs(eventId).
			WillReturnRows(s.eventRows(eventId, model.EventStatusRejected))
		s.PgxMock.ExpectQuery(`FROM businesses WHERE id = \$1`).
			WithArgs("01BIZAAAAAAAAAAAAAAAAAAAAA").
			WillReturnRows(s.businessRows())

		s.Publisher.EXPECT().Publish(
			gomock.Any(),
			constant.SubjectSendNotification,
			gomock.Any(),
		).Return(nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/events/"+eventId+"/reject",
			strings.NewReader(`{"reason": "Blurry venue permit"}`))
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		eventHttp.reject(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"status":"rejected"`)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}

func (s *EventHttpTestSuite) TestResubmit() {
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	claims := auth.Claims{
		UserId:     "01USROWNAAAAAAAAAAAAAAAAAA",
		Role:       model.RoleBusiness,
		BusinessId: "01BIZAAAAAAAAAAAAAAAAAAAAA",
	}

	withClaims := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		return req.WithContext(context.WithValue(req.Context(), claimsCtxKey{}, claims))
	}

	s.Run("only rejected events can resubmit", func() {
		eventHttp := s.newEventHttp()

		s.PgxMock.ExpectExec(`UPDATE events SET status = 'pending'`).
			WithArgs(eventId, claims.BusinessId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		req := withClaims(http.MethodPost, "/api/events/"+eventId+"/resubmit")
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		eventHttp.resubmit(w, req)

		s.Equal(http.StatusConflict, w.Code)
		s.Equal(`{"error":"Invalid state transition"}`, strings.TrimSpace(w.Body.String()))
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})

	s.Run("success", func() {
		eventHttp := s.newEventHttp()

		s.PgxMock.ExpectExec(`UPDATE events SET status = 'pending'`).
			WithArgs(eventId, claims.BusinessId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		req := withClaims(http.MethodPost, "/api/events/"+eventId+"/resubmit")
		req.SetPathValue("id", eventId)
		w := httptest.NewRecorder()

		eventHttp.resubmit(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.NoError(s.PgxMock.ExpectationsWereMet())
	})
}
