package log

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables consulted for the scheduler-assigned job ID, in
// order of preference. Covers Slurm, SGE/UGE and Torque submissions.
var jobIDEnvVars = []string{"SLURM_JOB_ID", "JOB_ID", "PBS_JOBID"}

var Logger zerolog.Logger

// BatchJobID returns the scheduler job ID of the current process, or
// "interactive" when the process is not running under a batch scheduler.
func BatchJobID() string {
	for _, key := range jobIDEnvVars {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "interactive"
}

func init() {
	// Configure zerolog with console writer for colored output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	jobID := BatchJobID()

	Logger = zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			e.Str("job", jobID)
		}))

	// Set global logger
	log.Logger = Logger
}

// Info logs an info message with the batch job ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with the batch job ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with the batch job ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with the batch job ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with the batch job ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}
