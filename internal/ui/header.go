package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/session"
)

// Badge keys into Theme.StatusColors.
const (
	badgeOpen     = "open"
	badgeClosed   = "closed"
	badgeBusy     = "busy"
	badgeCaptured = "captured"
	badgeError    = "error"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{
		bg.Render("shutter", styles.Logo),
		m.cameraBadge(styles),
	}

	if m.snapshot.CameraOpen && m.snapshot.Device != "" {
		parts = append(parts,
			bg.Render("Device:", styles.MutedText)+bg.Space()+bg.Render(m.snapshot.Device, styles.Text))
	}

	check := "[ ]"
	if m.snapshot.FrontCamera {
		check = "[x]"
	}
	parts = append(parts, bg.Render(check+" Front camera", styles.Text))

	if m.snapshot.HasCapture() {
		parts = append(parts,
			bg.Render("Captured:", styles.MutedText)+bg.Space()+bg.Render(m.snapshot.CapturedImageSize, styles.AccentText))
	}

	if err := m.snapshot.LastError; err != nil {
		parts = append(parts, bg.Render(describeError(err), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

func (m Model) cameraBadge(styles Styles) string {
	switch {
	case m.busy != "":
		return styles.StatusStyle(badgeBusy).Render(strings.ToUpper(m.busy))
	case m.snapshot.CameraOpen:
		return styles.StatusStyle(badgeOpen).Render("● OPEN")
	case m.snapshot.LastError != nil:
		return styles.StatusStyle(badgeError).Render("● CLOSED")
	default:
		return styles.StatusStyle(badgeClosed).Render("● CLOSED")
	}
}

// describeError maps known failures to a short header message.
func describeError(err error) string {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return "Camera permission denied"
	case errors.Is(err, camera.ErrNoDevice):
		return "No camera found"
	case errors.Is(err, camera.ErrConstraintsUnsatisfiable):
		return "No camera matches the request"
	case errors.Is(err, camera.ErrStreamEnded):
		return "Camera stream ended"
	case errors.Is(err, session.ErrCameraClosed):
		return "Camera is closed"
	case errors.Is(err, session.ErrNothingCaptured):
		return "Nothing captured yet"
	default:
		return truncate(err.Error(), 60)
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"v", levelLabel(m.logState.minLevel)},
			{"/", "Filter"},
			{"j/k", "Scroll"},
			{"l", "Camera"},
		}
	default:
		if m.editingName {
			commands = []cmd{
				{"enter", "Save name"},
				{"esc", "Cancel"},
			}
			break
		}
		if m.snapshot.CameraOpen {
			commands = append(commands,
				cmd{"x", "Close"},
				cmd{"space", "Capture"},
			)
		} else {
			commands = append(commands, cmd{"o", "Open"})
		}
		commands = append(commands, cmd{"f", "Front"})
		if m.snapshot.HasCapture() {
			commands = append(commands,
				cmd{"d", downloadLabel(m.snapshot.CapturedImageSize)},
				cmd{"n", "Name"},
				cmd{"t", string(m.snapshot.FileType)},
				cmd{"y", "Copy"},
			)
		}
		commands = append(commands, cmd{"l", "Logs"})
	}

	if !m.editingName {
		for _, b := range m.keys.ShortHelp() {
			commands = append(commands, cmd{b.Help().Key, b.Help().Desc})
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.currentView == ViewLogs && m.logState.query != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.query, 18), styles.AccentText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Width(m.width).
		Render(strings.Join(segments, sep))
}

// downloadLabel is the download action label, carrying the captured size.
func downloadLabel(size string) string {
	if size == "" {
		return "Download"
	}
	return fmt.Sprintf("Download (%s)", size)
}
