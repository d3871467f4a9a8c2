package chat

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Fast image generation/editing |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Advanced image generation     |
// | Gemini 2.5 Flash-Lite       | gemini-2.5-flash-lite       | High-throughput, lowest cost  |
const (
	// ModelGemini25FlashImage is the image model livery transfers run against.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// EnvImageModel overrides the image model.
const EnvImageModel = "GEMINI_IMAGE_MODEL"

// DefaultImageModel is the default Gemini image model.
const DefaultImageModel = ModelGemini25FlashImage

// GetImageModelName returns the image model to use, resolved from:
// 1. GEMINI_IMAGE_MODEL environment variable (if set)
// 2. Default: gemini-2.5-flash-image
func GetImageModelName() string {
	if env := os.Getenv(EnvImageModel); env != "" {
		return env
	}
	return DefaultImageModel
}
