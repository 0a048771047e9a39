package event

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ticketera/common/constant"
	jetsteamMock "ticketera/common/jetstream/mocks"
	"ticketera/model"
	"ticketera/outbound/store"
)

type PurchaseEventTestSuite struct {
	suite.Suite

	Querier   *store.Queries
	PgxMock   pgxmock.PgxPoolIface
	Publisher *jetsteamMock.MockPublisher

	PurchaseEvent PurchaseEvent
}

func (s *PurchaseEventTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	pool, err := pgxmock.NewPool()
	if err != nil {
		s.T().Fatalf("failed to create pgxmock pool: %v", err)
	}

	s.PgxMock = pool
	s.Querier = store.New(pool)
	s.Publisher = jetsteamMock.NewMockPublisher(ctrl)

	s.PurchaseEvent = PurchaseEvent{
		Db:                pool,
		Querier:           s.Querier,
		Publisher:         s.Publisher,
		CurrencyFormatter: message.NewPrinter(language.Spanish),
		Timeout:           10 * time.Second,
	}

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func (s *PurchaseEventTestSuite) TearDownTest() {
	s.PgxMock.Close()
}

func TestPurchaseEventTestSuite(t *testing.T) {
	suite.Run(t, new(PurchaseEventTestSuite))
}

func (s *PurchaseEventTestSuite) TestCreatedHandler() {
	tests := []struct {
		name      string
		msg       string
		setupMock func()
		wantErr   bool
	}{
		{
			name:      "malformed message is dropped",
			msg:       `{invalid`,
			setupMock: func() {},
		},
		{
			name:      "no email skips confirmation",
			msg:       `{"id": "01PRCAAAAAAAAAAAAAAAAAAAAA", "customer_name": "Maria", "customer_email": ""}`,
			setupMock: func() {},
		},
		{
			name: "publishes confirmation",
			msg:  `{"id": "01PRCAAAAAAAAAAAAAAAAAAAAA", "event_title": "Rock Night", "customer_name": "Maria", "customer_email": "maria@example.com", "total_amount": "100.00", "verification_code": "AB12CD34"}`,
			setupMock: func() {
				s.Publisher.EXPECT().Publish(
					gomock.Any(),
					constant.SubjectSendNotification,
					gomock.Any(),
				).Return(nil, nil)
			},
		},
		{
			name: "publish error is retried",
			msg:  `{"id": "01PRCAAAAAAAAAAAAAAAAAAAAA", "customer_email": "maria@example.com"}`,
			setupMock: func() {
				s.Publisher.EXPECT().Publish(
					gomock.Any(),
					constant.SubjectSendNotification,
					gomock.Any(),
				).Return(nil, context.DeadlineExceeded)
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			tc.setupMock()

			err := s.PurchaseEvent.CreatedHandler(context.Background(), []byte(tc.msg))

			if tc.wantErr {
				s.Error(err)
			} else {
				s.NoError(err)
			}
		})
	}
}

func (s *PurchaseEventTestSuite) TestVerifyHandler() {
	const purchaseId = "01PRCAAAAAAAAAAAAAAAAAAAAA"
	const eventId = "01EVTAAAAAAAAAAAAAAAAAAAAA"

	msg := `{"id": "` + purchaseId + `", "verified_by": "01USRADMAAAAAAAAAAAAAAAAAA"}`
	markUsedMsg := `{"id": "` + purchaseId + `", "verified_by": "01USRADMAAAAAAAAAAAAAAAAAA", "mark_used": true}`

	purchaseRows := func(email string) *pgxmock.Rows {
		return pgxmock.NewRows([]string{
			"id", "event_id", "customer_name", "customer_phone", "customer_email", "total_amount", "payment_method",
			"payment_proof", "status", "verification_code", "notified_payment_verified", "notified_tickets_ready", "created_at",
		}).AddRow(
			purchaseId, eventId, "Maria Lopez", "+59170000000", email,
			decimal.RequireFromString("100.00"), model.PaymentMethodQr, "proof.jpg",
			model.PurchasePaymentSubmitted, "AB12CD34", false, false,
			time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		)
	}

	eventRows := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{
			"id", "title", "description", "date", "time", "location", "city", "image", "business_id", "business_name",
			"max_capacity", "current_sales", "is_active", "status", "rejection_reason", "created_at", "updated_at",
		}).AddRow(
			eventId, "Rock Night", "A loud one", "2026-10-01", "20:00", "Teatro Gran Rex", "La Paz", "",
			"01BIZAAAAAAAAAAAAAAAAAAAAA", "Best Events", int32(100), int32(2), true, model.EventStatusApproved, "",
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		)
	}

	tests := []struct {
		name      string
		msg       string
		setupMock func()
		wantErr   bool
	}{
		{
			name:      "malformed message is dropped",
			msg:       `{invalid`,
			setupMock: func() {},
		},
		{
			name: "purchase not found",
			msg:  msg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(pgxmock.NewRows([]string{"id"}))
			},
			wantErr: true,
		},
		{
			name: "redelivered message updates zero rows and is dropped",
			msg:  msg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(purchaseRows("maria@example.com"))
				s.PgxMock.ExpectBegin()
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'payment_verified'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				s.PgxMock.ExpectRollback().WillReturnError(nil)
			},
		},
		{
			name: "completion fence failure surfaces",
			msg:  msg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(purchaseRows("maria@example.com"))
				s.PgxMock.ExpectBegin()
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'payment_verified'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'completed'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				s.PgxMock.ExpectRollback().WillReturnError(nil)
			},
			wantErr: true,
		},
		{
			name: "success with tickets ready notification",
			msg:  msg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(purchaseRows("maria@example.com"))
				s.PgxMock.ExpectBegin()
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'payment_verified'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'completed'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET notified_payment_verified = \$2`).
					WithArgs(purchaseId, true, true).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectCommit().WillReturnError(nil)
				s.PgxMock.ExpectQuery(`FROM events WHERE id = \$1`).
					WithArgs(eventId).
					WillReturnRows(eventRows())

				s.Publisher.EXPECT().Publish(
					gomock.Any(),
					constant.SubjectSendNotification,
					gomock.Any(),
				).Return(nil, nil)
			},
		},
		{
			name: "mark used admits the whole purchase",
			msg:  markUsedMsg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(purchaseRows("maria@example.com"))
				s.PgxMock.ExpectBegin()
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'payment_verified'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'validated'`).
					WithArgs(purchaseId, "01USRADMAAAAAAAAAAAAAAAAAA").
					WillReturnResult(pgxmock.NewResult("UPDATE", 2))
				s.PgxMock.ExpectExec(`UPDATE tickets SET status = 'used'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 2))
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'completed'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET notified_payment_verified = \$2`).
					WithArgs(purchaseId, true, true).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectCommit().WillReturnError(nil)
				s.PgxMock.ExpectQuery(`FROM events WHERE id = \$1`).
					WithArgs(eventId).
					WillReturnRows(eventRows())

				s.Publisher.EXPECT().Publish(
					gomock.Any(),
					constant.SubjectSendNotification,
					gomock.Any(),
				).Return(nil, nil)
			},
		},
		{
			name: "success without email skips notification",
			msg:  msg,
			setupMock: func() {
				s.PgxMock.ExpectQuery(`FROM purchases WHERE id = \$1`).
					WithArgs(purchaseId).
					WillReturnRows(purchaseRows(""))
				s.PgxMock.ExpectBegin()
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'payment_verified'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET status = 'completed'`).
					WithArgs(purchaseId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectExec(`UPDATE purchases SET notified_payment_verified = \$2`).
					WithArgs(purchaseId, true, true).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				s.PgxMock.ExpectCommit().WillReturnError(nil)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			tc.setupMock()

			err := s.PurchaseEvent.VerifyHandler(context.Background(), []byte(tc.msg))

			if tc.wantErr {
				s.Error(err)
			} else {
				s.NoError(err)
			}

			s.NoError(s.PgxMock.ExpectationsWereMet())
		})
	}
}
