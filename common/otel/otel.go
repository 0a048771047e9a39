package otel

import (
	"context"
	"log"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var Tracer trace.Tracer = otel.Tracer("ticketera")

// Init wires the OTLP gRPC exporter and replaces the global provider.
// Returns a shutdown func to flush spans on exit.
func Init(ctx context.Context, cfg *viper.Viper) func(context.Context) error {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.GetString("otel.addr")),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		log.Fatalln("unable to create otlp exporter", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("ticketera"),
		)),
	)

	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("ticketera")

	return provider.Shutdown
}
