package utils

import (
	"os"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/postline/postline/utils/dotenv"
	Flag "github.com/postline/postline/utils/flag"
	Logger "github.com/postline/postline/utils/log"
)

// StartTracer starts the Datadog tracer for the current service.
func StartTracer() {
	env := "development"
	if os.Getenv("POSTLINE_ENV") == dotenv.ProdEnv {
		env = "production"
	}

	tracer.Start(
		tracer.WithService(Flag.ServiceName),
		tracer.WithEnv(env),
	)

	Logger.Log.Info("tracer initialized")
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
