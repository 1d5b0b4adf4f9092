package content

import (
	"fmt"
	"net/url"
	"strings"
)

// AspectRatio is a width:height ratio supported by the image helper.
type AspectRatio string

const (
	Ratio16x9 AspectRatio = "16:9"
	Ratio4x3  AspectRatio = "4:3"
	Ratio1x1  AspectRatio = "1:1"
	Ratio3x2  AspectRatio = "3:2"
	Ratio9x12 AspectRatio = "9:12"
)

// ImageFit tells the image host how to resize into the requested box.
type ImageFit string

const (
	FitPad   ImageFit = "pad"
	FitFill  ImageFit = "fill"
	FitScale ImageFit = "scale"
	FitCrop  ImageFit = "crop"
	FitThumb ImageFit = "thumb"
)

// heightPerWidth holds height/width as an integer fraction so heights floor
// exactly.
var heightPerWidth = map[AspectRatio][2]int{
	Ratio1x1:  {1, 1},
	Ratio16x9: {9, 16},
	Ratio4x3:  {3, 4},
	Ratio3x2:  {2, 3},
	Ratio9x12: {12, 9},
}

var validFits = map[ImageFit]bool{
	FitPad: true, FitFill: true, FitScale: true, FitCrop: true, FitThumb: true,
}

// HeightFor returns floor(width * ratio). Unknown ratios are treated as 1:1.
func HeightFor(ratio AspectRatio, width int) int {
	r, ok := heightPerWidth[ratio]
	if !ok {
		return width
	}
	return width * r[0] / r[1]
}

// ImageURL parameterizes src for on-the-fly resizing by the image host:
// src?w=<width>&h=<height>&fit=<fit>. Existing query parameters are kept.
func ImageURL(src string, width int, ratio AspectRatio, fit ImageFit) string {
	if src == "" || width <= 0 {
		return src
	}
	if !validFits[fit] {
		fit = FitFill
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	params := fmt.Sprintf("w=%d&h=%d&fit=%s", width, HeightFor(ratio, width), url.QueryEscape(string(fit)))
	if strings.Contains(src, "?") {
		return src + "&" + params
	}
	return src + "?" + params
}
