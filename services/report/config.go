package report

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the report service.
//
// S3_BUCKET is deliberately not required: a missing bucket surfaces as a
// configuration error when a publish is attempted, not at startup.
type Config struct {
	Addr         string `env:"ADDR,default=:8080"`
	DBDSN        string `env:"DB_DSN,required"`
	NATSURL      string `env:"NATS_URL,required"`
	Stream       string `env:"REPORT_STREAM,default=REPORTS"`
	Subject      string `env:"REPORT_SUBJECT,default=reports.jobs"`
	Durable      string `env:"REPORT_DURABLE,default=report-worker"`
	Bucket       string `env:"S3_BUCKET"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig returns a Config populated from environment variables.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
