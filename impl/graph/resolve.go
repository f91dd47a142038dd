// Package graph turns the flat per-image metadata of an archive into the list
// of layers to import. Walks start at leaf images and follow parent links
// toward the root, so the output is leaf-first within each chain.
package graph

import (
	"github.com/aceeric/layerimport/impl/models"
)

// Resolve returns one descriptor per image reachable from the passed leaves,
// walking each leaf's parent chain in the order of 'leafIDs'. An image shared by
// more than one chain appears once, at the position where it was first reached.
// A chain stops after the image whose parent is 'maskID', so the masked image
// and its ancestors are excluded. An empty 'maskID' masks nothing.
//
// Every visited image must have a size. Resolution fails with a
// *MissingAttributeError if one doesn't, with an *UnknownImageError if a parent
// has no metadata, and with a *GraphCycleError if a chain loops.
func Resolve(metadata map[string]models.ImageMetadata, leafIDs []string, maskID string) ([]models.ImageDescriptor, error) {
	images := []models.ImageDescriptor{}
	emitted := make(map[string]bool)

	for _, leafID := range leafIDs {
		if maskID != "" && leafID == maskID {
			continue
		}
		visited := make(map[string]bool)
		chain := []string{}
		for imageID := leafID; imageID != ""; {
			if visited[imageID] {
				return nil, &GraphCycleError{ImageID: imageID, Chain: chain}
			}
			visited[imageID] = true
			chain = append(chain, imageID)

			md, exists := metadata[imageID]
			if !exists {
				return nil, &UnknownImageError{ImageID: imageID}
			}
			if md.Size == nil {
				return nil, &MissingAttributeError{ImageID: imageID, Attribute: models.ImageSizeKey}
			}
			if !emitted[imageID] {
				emitted[imageID] = true
				images = append(images, models.NewImageDescriptor(imageID, md.Parent, *md.Size))
			}
			if maskID != "" && md.Parent == maskID {
				break
			}
			imageID = md.Parent
		}
	}
	return images, nil
}

// Ancestry returns the chain of image IDs from 'imageID' to its root: the image
// itself first, then each parent, closest first.
func Ancestry(metadata map[string]models.ImageMetadata, imageID string) ([]string, error) {
	chain := []string{}
	visited := make(map[string]bool)
	for imageID != "" {
		if visited[imageID] {
			return nil, &GraphCycleError{ImageID: imageID, Chain: chain}
		}
		md, exists := metadata[imageID]
		if !exists {
			return nil, &UnknownImageError{ImageID: imageID}
		}
		visited[imageID] = true
		chain = append(chain, imageID)
		imageID = md.Parent
	}
	return chain, nil
}
