package export

// TargetDimensions maps an aspect ratio to the exact output pixel size.
// Unknown ratios fall back to 16:9.
func TargetDimensions(aspectRatio string) (int, int) {
	switch aspectRatio {
	case "1:1":
		return 1080, 1080
	case "4:3":
		return 1440, 1080
	case "3:4":
		return 1080, 1440
	case "9:16":
		return 1080, 1920
	default:
		return 1920, 1080
	}
}
