package utils

import (
	"os"

	"gopkg.in/DataDog/dd-trace-go.v1/profiler"

	"github.com/postline/postline/utils/dotenv"
	Flag "github.com/postline/postline/utils/flag"
	Logger "github.com/postline/postline/utils/log"
)

// StartProfiler starts the Datadog profiler for the current service.
func StartProfiler() {
	env := "development"
	if os.Getenv("POSTLINE_ENV") == dotenv.ProdEnv {
		env = "production"
	}

	if err := profiler.Start(
		profiler.WithService(Flag.ServiceName),
		profiler.WithEnv(env),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
			// The profiles below are disabled by
			// default to keep overhead low, but
			// can be enabled as needed.
			// profiler.BlockProfile,
			// profiler.MutexProfile,
			// profiler.GoroutineProfile,
		),
	); err != nil {
		Logger.Log.Fatal(err)
	}
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
