package backdoor

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewEpisodeLogger returns a *logrus.Entry tagged with a fresh episode ID
// (§A.1). The CLI logs its own lines through this entry; the searcher,
// pool, deriver and driver log through logrus's standard logger with a
// "component" field and do not carry the "episode" field.
func NewEpisodeLogger(base *logrus.Logger) *logrus.Entry {
	if base == nil {
		base = logrus.New()
		base.SetOutput(discardWriter{})
	}
	return base.WithField("episode", uuid.NewString())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// ConfigureLogging sets the shared logger's level and formatter from the
// CLI's verbosity flag (§A.3). Text formatting matches logrus's default,
// with full timestamps so piped CLI output stays greppable.
func ConfigureLogging(log *logrus.Logger, verbose bool) {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}
