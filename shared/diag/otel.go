package diag

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/fpsync/shared/diag"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
