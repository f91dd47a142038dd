package subcmd

import (
	"errors"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/importer"
	"github.com/aceeric/layerimport/impl/scratchpad"
	"github.com/aceeric/layerimport/impl/stream"
	"github.com/aceeric/layerimport/impl/units"
	"github.com/aceeric/layerimport/impl/upload"
)

var errNoRepo = errors.New("--repo is required")

// newUploader builds the file system stores under the configured storage path
// and an uploader that writes layers per the configured import options.
func newUploader() (*upload.Uploader, *units.FilesystemStore, error) {
	root := config.GetStoragePath()
	store := units.NewFilesystemStore(root, "")
	pads := scratchpad.NewFilesystemStore(root)
	codec, err := stream.CodecFor(config.GetCompression())
	if err != nil {
		return nil, nil, err
	}
	opts := importer.Options{
		ChunkSize:    int(config.GetChunkSize()),
		Codec:        codec,
		AtomicWrites: config.GetAtomicWrites(),
	}
	return upload.New(store, pads, opts), store, nil
}
