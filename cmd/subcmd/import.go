package subcmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aceeric/layerimport/impl/config"
)

// Import uploads the configured archive into the configured repository and
// prints a summary.
func Import(ctx context.Context) error {
	if config.GetArchive() == "" {
		return errors.New("--archive is required")
	}
	if config.GetRepo() == "" {
		return errNoRepo
	}
	uploader, _, err := newUploader()
	if err != nil {
		return err
	}
	res, err := uploader.Upload(ctx, config.GetRepo(), config.GetArchive(), config.GetMask())
	if err != nil {
		return fmt.Errorf("error importing %s: %w", config.GetArchive(), err)
	}
	fmt.Printf("imported %s into %s: %d images, %d extracted, %d already present\n",
		res.Archive, res.Repo, res.Descriptors, res.Extracted, res.Skipped)
	return nil
}
