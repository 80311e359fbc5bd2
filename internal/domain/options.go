package domain

// Mode selects the creative workflow for analysis and generation.
type Mode string

// Supported modes
const (
	ModeRemix       Mode = "remix"
	ModeTryOn       Mode = "tryon"
	ModeCustomModel Mode = "custom_model"
	ModeStudio      Mode = "studio"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeRemix, ModeTryOn, ModeCustomModel, ModeStudio:
		return true
	default:
		return false
	}
}

// DefaultFreedomLevel is the freedom level used when a request omits it:
// try-on keeps the reference scene, custom models start from scratch.
func (m Mode) DefaultFreedomLevel() int {
	switch m {
	case ModeTryOn:
		return 0
	case ModeCustomModel:
		return 10
	default:
		return 5
	}
}

// ImageSize is the output resolution tier of a generated image.
type ImageSize string

// Supported image sizes
const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// imageCosts is the credit price of a single image per size.
var imageCosts = map[ImageSize]int{
	ImageSize1K: 95,
	ImageSize2K: 125,
	ImageSize4K: 180,
}

// Valid reports whether s has a price.
func (s ImageSize) Valid() bool {
	_, ok := imageCosts[s]
	return ok
}

// Cost returns the credit price of one image of this size, or 0 if s is invalid.
func (s ImageSize) Cost() int {
	return imageCosts[s]
}

// AspectRatio is the output frame of a generated image.
type AspectRatio string

// Supported aspect ratios
const (
	AspectRatioPortrait AspectRatio = "3:4"
	AspectRatioSquare   AspectRatio = "1:1"
	AspectRatioStory    AspectRatio = "9:16"
)

// Valid reports whether r is supported.
func (r AspectRatio) Valid() bool {
	switch r {
	case AspectRatioPortrait, AspectRatioSquare, AspectRatioStory:
		return true
	default:
		return false
	}
}
