package subcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/globals"
	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/server"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const startupBanner = `----------------------------------------------------------------------
layerimport: query API over imported image layers
Version: %s, build date: %s
Started: %s (port %d)
Storage: %s
Running as (uid:gid) %d:%d
Process id: %d
Tls: %s
Command line: %v
----------------------------------------------------------------------
`

// listener will be initialized with the Echo listener once the Echo server
// is started.
var listener net.Listener

// Serve runs the query API server, blocking until stopped via the command
// REST API.
func Serve(buildVer string, buildDtm string) error {
	tlsCfg, err := globals.ParseTls(config.GetServerTlsCfg())
	if err != nil {
		return fmt.Errorf("error parsing TLS configuration: %s", err)
	}
	uploader, store, err := newUploader()
	if err != nil {
		return err
	}
	metrics.InitMetrics(int(config.GetMetrics()))

	shutdownCh := make(chan bool, 1)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(globals.GetEchoLoggingFunc())
	server.New(store, uploader.Tags(), shutdownCh).Register(e)

	fmt.Fprintf(os.Stderr, startupBanner, buildVer, buildDtm, time.Now().Format(time.RFC3339), config.GetPort(),
		config.GetStoragePath(), os.Getuid(), os.Getgid(), os.Getpid(), tlsMsg(), strings.Join(os.Args, " "))

	go func() {
		addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(int(config.GetPort())))
		if tlsCfg != nil {
			s := http.Server{
				Addr:      addr,
				Handler:   e,
				TLSConfig: tlsCfg,
			}
			if err := e.StartServer(&s); err != http.ErrServerClosed {
				log.Errorf("shutting down the server. error: %s", err)
				shutdownCh <- true
			}
		} else {
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				log.Errorf("shutting down the server. error: %s", err)
				shutdownCh <- true
			}
		}
	}()
	if err := waitForEchoListener(e); err != nil {
		return errors.New("timed out waiting for Echo listener")
	}
	listener = getEchoListener(e)
	log.Info("server is running")

	<-shutdownCh
	log.Infof("received stop command - stopping")
	e.Server.Shutdown(context.Background())
	log.Infof("stopped")
	return nil
}

// tlsMsg formats the server TLS configuration for the startup banner
func tlsMsg() string {
	tlsCfg := config.GetServerTlsCfg()
	if tlsCfg.Cert == "" || tlsCfg.Key == "" {
		return "none"
	}
	msg := fmt.Sprintf("cert=%s, key=%s", tlsCfg.Cert, tlsCfg.Key)
	if tlsCfg.CA != "" {
		msg = fmt.Sprintf("%s, ca=%s", msg, tlsCfg.CA)
	}
	return fmt.Sprintf("%s, client verify=%s", msg, tlsCfg.ClientAuth)
}

// getEchoListener gets the Echo listener. Supports unit testing.
func getEchoListener(e *echo.Echo) net.Listener {
	if e.Listener != nil {
		return e.Listener
	}
	return e.TLSListener
}

// waitForEchoListener waits for the Listener in the Echo server to be initialized so
// unit tests can start the server on port zero and find the port that was assigned.
func waitForEchoListener(e *echo.Echo) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if e.ListenerAddr() != nil || e.TLSListenerAddr() != nil {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// GetListener supports unit testing.
func GetListener() net.Listener {
	return listener
}

// InitListener supports unit testing.
func InitListener() {
	listener = nil
}
