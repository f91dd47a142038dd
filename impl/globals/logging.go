package globals

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const msg = "echo server %s:%s status=%d latency=%s host=%s ip=%s"
const srch = `.*([a-f0-9]{64}).*`

var re = regexp.MustCompile(srch)

// ConfigureLogging sets the logger level and, if 'logFile' is not empty, directs
// log output to that file.
func ConfigureLogging(level string, logFile string) error {
	log.SetLevel(xlatLogLevel(level))
	log.SetFormatter(&log.TextFormatter{})
	if logFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file %s: %w", logFile, err)
	}
	log.SetOutput(f)
	return nil
}

// xlatLogLevel translates the passed 'level' string to a logger const
func xlatLogLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "TRACE":
		return log.TraceLevel
	}
	return log.FatalLevel
}

// GetEchoLoggingFunc gets the query API server logging function
func GetEchoLoggingFunc() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			// don't log the health check because it clutters the log
			if req.RequestURI == "/health" {
				return nil
			}

			// image IDs clutter the logs so shorten them
			uri := req.RequestURI
			if id := re.FindStringSubmatch(uri); len(id) == 2 {
				uri = strings.Replace(uri, id[1], id[1][:12], 1)
			}

			flds := []any{req.Method, uri, res.Status, time.Since(start), req.Host, c.RealIP()}
			switch {
			case res.Status >= 500:
				log.Errorf(msg, flds...)
			case res.Status >= 400:
				log.Warnf(msg, flds...)
			default:
				log.Infof(msg, flds...)
			}
			return nil
		}
	}
}
