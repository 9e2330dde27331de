package chatui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// avatarColors is the palette user avatars are drawn from.
var avatarColors = []lipgloss.Color{
	"#2ecc71",
	"#3498db",
	"#9b59b6",
	"#e74c3c",
	"#f1c40f",
	"#1abc9c",
}

// AvatarColor picks a palette entry for userID. The same id always gets
// the same color.
func AvatarColor(userID string) lipgloss.Color {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return avatarColors[h.Sum32()%uint32(len(avatarColors))]
}

type styles struct {
	title        lipgloss.Style
	user         lipgloss.Style
	connected    lipgloss.Style
	disconnected lipgloss.Style
	status       lipgloss.Style
	name         lipgloss.Style
	timestamp    lipgloss.Style
	text         lipgloss.Style
	other        lipgloss.Style
	inputBox     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:        lipgloss.NewStyle().Bold(true),
		user:         lipgloss.NewStyle().Faint(true),
		connected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")),
		disconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#c0392b")).
			Padding(0, 1),
		name:      lipgloss.NewStyle().Bold(true),
		timestamp: lipgloss.NewStyle().Faint(true),
		text:      lipgloss.NewStyle(),
		other:     lipgloss.NewStyle().PaddingLeft(4),
		inputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")),
	}
}

func (s styles) avatar(userID string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Background(AvatarColor(userID)).
		Padding(0, 1)
}
