package parser

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tomcat-viz/trialviz/internal/parser"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
