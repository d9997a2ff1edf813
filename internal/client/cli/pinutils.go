package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/showmeapp/showme/internal/client/models"
)

const (
	defaultPinColor = "#95a5a6"
	defaultPinEmoji = "📍"
)

var pinColors = map[string]string{
	"medical":    "#e74c3c",
	"water":      "#3498db",
	"checkpoint": "#f39c12",
	"shelter":    "#2ecc71",
	"food":       "#9b59b6",
	"danger":     "#e67e22",
	"other":      "#95a5a6",
}

var pinEmojis = map[string]string{
	"medical":    "🏥",
	"water":      "💧",
	"checkpoint": "🚧",
	"shelter":    "🏠",
	"food":       "🍽️",
	"danger":     "⚠️",
	"other":      "📍",
}

// PinColor picks a marker color from the pin's first tag. Unknown tags,
// missing tags and undecodable tag JSON all fall back to the neutral color.
func PinColor(pin models.Pin) string {
	return lookupByFirstTag(pin.Tags, pinColors, defaultPinColor)
}

// PinEmoji picks a marker emoji from the pin's first tag.
func PinEmoji(pin models.Pin) string {
	return lookupByFirstTag(pin.Tags, pinEmojis, defaultPinEmoji)
}

func lookupByFirstTag(rawTags string, table map[string]string, fallback string) string {
	var tags []string
	if err := json.Unmarshal([]byte(rawTags), &tags); err != nil || len(tags) == 0 {
		return fallback
	}
	if v, ok := table[tags[0]]; ok {
		return v
	}
	return fallback
}

// TimeAgo renders a compact relative timestamp: "Just now" under a minute,
// then minutes, hours and days; anything a week old or more shows the date.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}
