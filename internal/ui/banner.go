package ui

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/pterm/pterm"
)

const bannerText = `
 _  _ ____ ____ ____ _  _ ____ _   _    ____ ___ ____ ___ ____
 |  | |__| |    |__| |\ | |     \_/     [__   |  |__|  |  [__
  \/  |  | |___ |  | | \| |___   |      ___]  |  |  |  |  ___]
`

// ColorizeText fades text between two random colors.
func ColorizeText(text string) string {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	start := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))
	end := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))

	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	var out string
	for i, r := range runes {
		out += start.Fade(0, float32(len(runes)), float32(i), end).Sprint(string(r))
	}
	return out
}

// PrintBanner writes the banner to w unless silence is set.
func PrintBanner(w io.Writer, silence bool) {
	if silence {
		return
	}
	fmt.Fprintln(w, ColorizeText(bannerText))
}
