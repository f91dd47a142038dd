package subcmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/watch"

	log "github.com/sirupsen/logrus"
)

// Watch uploads archives dropped into the configured watch path into the
// configured repository until the passed context is done or the process is
// interrupted. Import metrics are served if a metrics port is configured.
func Watch(ctx context.Context) error {
	if config.GetRepo() == "" {
		return errNoRepo
	}
	uploader, _, err := newUploader()
	if err != nil {
		return err
	}
	metrics.InitMetrics(int(config.GetMetrics()))
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	repo, mask := config.GetRepo(), config.GetMask()
	w := watch.New(config.GetWatchPath(), func(ctx context.Context, archivePath string) error {
		_, err := uploader.Upload(ctx, repo, archivePath, mask)
		return err
	})
	log.Infof("watching %s for archives to import into %s", config.GetWatchPath(), repo)
	return w.Run(ctx)
}
