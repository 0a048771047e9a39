package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ticketera/common/constant"
	"ticketera/common/otel"
	"ticketera/inbound/event"
	"ticketera/outbound/store"
)

func runQueuePurchaseCmd(ctx context.Context) {
	cfg := newCfg("env")

	if cfg.GetString("env") == "dev" {
		cpu, err := os.Create("purchase-cpu.prof")
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer cpu.Close()

		err = pprof.StartCPUProfile(cpu)
		if err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()

		mem, err := os.Create("purchase-mem.prof")
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer mem.Close()

		err = pprof.WriteHeapProfile(mem)
		if err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
		defer mem.Close()
	}

	shutdownTracing := otel.Init(ctx, cfg)
	defer shutdownTracing(context.Background())

	db := newDb(cfg)
	defer db.Close()

	querier := store.New(db)

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	createStreamWorkQueue(ctx, js)

	st, err := js.Stream(ctx, constant.QueueStreamName)
	if err != nil {
		log.Fatalln("failed to get stream", err)
	}

	purchaseEvent := event.PurchaseEvent{
		Db:                db,
		Querier:           querier,
		Publisher:         js,
		CurrencyFormatter: message.NewPrinter(language.Spanish),
		Timeout:           cfg.GetDuration("queue.purchase.timeout"),
	}

	cons, err := st.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       "consumer:purchase",
		FilterSubject: constant.PurchaseWildcard,
		MaxDeliver:    cfg.GetInt("queue.purchase.max_deliver"),
		AckWait:       cfg.GetDuration("queue.purchase.ack_wait"),
	})
	if err != nil {
		log.Fatalln("failed to create consumer", err)
	}

	iter, err := cons.Messages()
	if err != nil {
		panic(err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := iter.Next()
				if err != nil && err != jetstream.ErrMsgIteratorClosed {
					slog.ErrorContext(ctx, "Error fetching message", slog.Any(constant.LogFieldErr, err))
					continue
				}

				if msg == nil {
					continue
				}

				var eventErr error
				switch msg.Subject() {
				case constant.SubjectPurchaseCreated:
					eventErr = purchaseEvent.CreatedHandler(ctx, msg.Data())
				case constant.SubjectVerifyPurchase:
					eventErr = purchaseEvent.VerifyHandler(ctx, msg.Data())
				}

				if eventErr != nil {
					msg.NakWithDelay(1 * time.Second)
					continue
				}

				if err := msg.Ack(); err != nil {
					slog.ErrorContext(ctx, "Error acknowledging message",
						slog.Any(constant.LogFieldErr, err),
						slog.Any(constant.LogFieldPayload, string(msg.Data())),
						slog.String("subject", msg.Subject()),
					)
					continue
				}
			}
		}
	}()

	slog.InfoContext(ctx, "purchase queue consumer started")

	<-ctx.Done()

	iter.Stop()

	slog.InfoContext(ctx, "purchase queue consumer stopped")
}
