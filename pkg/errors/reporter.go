package errors

import (
	"os"
	"time"

	"github.com/certifi/gocertifi"
	"github.com/getsentry/sentry-go"

	"moff.io/web3session/pkg/log"
)

var (
	reporters []Reporter
)

func init() {
	reporters = make([]Reporter, 0)
	if os.Getenv(debugMode) == "" {
		log.Info("Env DEBUG not set, report errors enabled.")
	} else {
		log.Info("Env DEBUG set, report errors disabled.")
	}
}

func report(err error) {
	if reporters == nil || err == nil {
		return
	}
	if os.Getenv(debugMode) != "" {
		return
	}
	for _, r := range reporters {
		r.Report(err)
	}
}

// Reporter forwards errors to an external sink.
type Reporter interface {
	Report(error)
}

// Setting this variable disables all reporting.
const debugMode = "DEBUG"

type sentryReporter struct {
	limiter *rateLimiter
}

func (s *sentryReporter) Report(err error) {
	if err == nil {
		return
	}
	stacks := callers().fullStack()
	limited, _ := s.limiter.StackBasedRateLimited(stacks[2])
	if limited {
		return
	}
	sentry.CaptureException(err)
}

// NewSentryReporter
// Initializes the sentry error reporter. Errors built with the *AndReport
// constructors of this package are captured to the configured sentry project,
// rate limited per originating stack frame by reportDelay.
// No errors are reported while the DEBUG environment variable is set.
func NewSentryReporter(sentryDSN string, reportDelay time.Duration) error {
	if sentryDSN == "" {
		log.Warn("empty DSN found, skipping sentry reporter initialization.")
		return nil
	}
	sentryClientOptions := sentry.ClientOptions{
		Dsn: sentryDSN,
	}

	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		return Wrap(err, "init sentry CA")
	}

	sentryClientOptions.CaCerts = rootCAs
	err = sentry.Init(sentryClientOptions)
	if err != nil {
		return Wrap(err, "init sentry")
	}
	log.Info("sentry error reporter initialized.")
	reporters = append(reporters, &sentryReporter{limiter: newRateLimiter(reportDelay)})
	return nil
}
