package testlog

import (
	"bytes"
	"testing"

	"github.com/danmuck/commons/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}

// Capture returns a JSON logger writing into the returned buffer, so tests
// can assert on reported events.
func Capture(t *testing.T) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return zerolog.New(&buf).Level(zerolog.TraceLevel), &buf
}
