package recipe

import (
	"slices"
	"strings"

	"recipehub/pkg/models"
)

// sizeOrder ranks the image size labels from smallest to largest.
var sizeOrder = []string{
	models.ImageThumbnail,
	models.ImageSmall,
	models.ImageRegular,
	models.ImageLarge,
}

// PickImage resolves a size request against the stored images. size is a
// label (case-insensitive), "largest" or "smallest".
func PickImage(images map[string]string, size string) (string, bool) {
	switch strings.ToLower(size) {
	case "largest":
		for _, s := range slices.Backward(sizeOrder) {
			if f, ok := images[s]; ok {
				return f, true
			}
		}
		return "", false
	case "smallest":
		for _, s := range sizeOrder {
			if f, ok := images[s]; ok {
				return f, true
			}
		}
		return "", false
	}

	f, ok := images[strings.ToUpper(size)]
	return f, ok
}
