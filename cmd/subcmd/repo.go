package subcmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aceeric/layerimport/impl/config"
)

// Tags prints the tags of the configured repository.
func Tags() error {
	if config.GetRepo() == "" {
		return errNoRepo
	}
	uploader, _, err := newUploader()
	if err != nil {
		return err
	}
	tags, err := uploader.Tags().Tags(config.GetRepo())
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Printf("%s %s\n", t.Tag, t.ImageID)
	}
	return nil
}

// Remove removes the configured images from the configured repository.
func Remove() error {
	if config.GetRepo() == "" {
		return errNoRepo
	}
	if len(config.GetImages()) == 0 {
		return errors.New("at least one --image is required")
	}
	uploader, _, err := newUploader()
	if err != nil {
		return err
	}
	return uploader.Remove(config.GetRepo(), config.GetImages())
}

// Copy copies the configured images and their ancestors between repositories,
// or every image if none are configured.
func Copy() error {
	uploader, _, err := newUploader()
	if err != nil {
		return err
	}
	copied, err := uploader.Copy(config.GetFromRepo(), config.GetToRepo(), config.GetImages())
	if err != nil {
		return err
	}
	for _, id := range copied {
		fmt.Println(id)
	}
	return nil
}

// List prints the stored units, or only those in the configured repository.
func List() error {
	_, store, err := newUploader()
	if err != nil {
		return err
	}
	recs, err := store.List(config.GetRepo())
	if err != nil {
		return fmt.Errorf("error listing units: %w", err)
	}
	if config.GetListConfig().Header {
		fmt.Println("IMAGE PARENT SAVES REPOSITORIES")
	}
	for _, rec := range recs {
		parent := rec.ParentID()
		if parent == "" {
			parent = "-"
		}
		fmt.Printf("%s %s %d %s\n", rec.ImageID(), parent, rec.SaveCount, strings.Join(rec.Repositories, ","))
	}
	return nil
}
