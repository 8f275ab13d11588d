package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shutter/internal/download"
)

// formLines is the height of the download form under the captured image.
const formLines = 4

// paneSize returns the outer size of each content pane.
func (m Model) paneSize() (width, height int, stacked bool) {
	body := m.height - 3 // header, command bar, status line
	if m.width < LayoutCompactWidth {
		return m.width, maxInt(body/2, 3), true
	}
	return m.width / 2, maxInt(body, 3), false
}

// previewCells is the cell area available to the live preview.
func (m Model) previewCells() (cols, rows int) {
	w, h, _ := m.paneSize()
	return maxInt(w-4, 1), maxInt(h-3, 1) // border, padding, title
}

// capturedCells is the cell area left for the captured image above the form.
func (m Model) capturedCells() (cols, rows int) {
	w, h, _ := m.paneSize()
	return maxInt(w-4, 1), maxInt(h-3-formLines, 1)
}

// renderCamera renders the camera and captured panes plus the status line.
func (m Model) renderCamera() string {
	w, h, stacked := m.paneSize()

	left := m.renderBox("Camera", m.renderPreviewPane(), w, h, !m.editingName)
	right := m.renderBox("Captured", m.renderCapturedPane(), w, h, m.editingName)

	var body string
	if stacked {
		body = lipgloss.JoinVertical(lipgloss.Left, left, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}
	return body + "\n" + m.renderStatusLine()
}

func (m Model) renderPreviewPane() string {
	styles := m.theme.Styles()
	_, rows := m.previewCells()

	switch {
	case m.busy != "" && !m.snapshot.CameraOpen:
		return styles.WarningText.Render(m.busy + "...")
	case !m.snapshot.CameraOpen:
		return styles.MutedText.Render("Camera closed. Press o to open.")
	case m.preview != "":
		return m.preview
	case m.previewErr != nil:
		return styles.DangerText.Render(describeError(m.previewErr))
	case rows < LayoutMinPreviewRows:
		return styles.FaintText.Render("Window too small for preview")
	default:
		return styles.MutedText.Render("Waiting for first frame...")
	}
}

func (m Model) renderCapturedPane() string {
	styles := m.theme.Styles()
	if !m.snapshot.HasCapture() {
		return styles.MutedText.Render("Nothing captured yet. Press space to capture.")
	}

	_, rows := m.capturedCells()
	thumb := m.captured
	if thumb == "" {
		thumb = styles.FaintText.Render("Rendering...")
	}
	thumb = lipgloss.NewStyle().Height(rows).MaxHeight(rows).Render(thumb)

	return thumb + "\n" + m.renderForm()
}

// renderForm renders the file name field, type selector and download action.
func (m Model) renderForm() string {
	styles := m.theme.Styles()
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Width(6)

	var name string
	if m.editingName {
		name = styles.Selected.Render(m.nameInput.View())
	} else {
		value := m.snapshot.FileName
		if value == "" {
			value = styles.FaintText.Render(m.nameInput.Placeholder)
		}
		name = styles.Text.Render(value)
	}

	types := make([]string, 0, len(download.FileTypes()))
	for _, ft := range download.FileTypes() {
		if ft == m.snapshot.FileType {
			types = append(types, styles.Selected.Render(" "+string(ft)+" "))
		} else {
			types = append(types, styles.MutedText.Render(" "+string(ft)+" "))
		}
	}

	target := download.FileName(m.snapshot.FileName, m.snapshot.FileType)
	lines := []string{
		label.Render("Name") + name,
		label.Render("Type") + strings.Join(types, " "),
		styles.AccentText.Render("[d] "+downloadLabel(m.snapshot.CapturedImageSize)) +
			styles.FaintText.Render("  → "+truncate(target, 40)),
	}
	if m.snapshot.LastSaved != "" {
		lines = append(lines, styles.SuccessText.Render("Saved ")+styles.MutedText.Render(truncateMiddle(m.snapshot.LastSaved, 50)))
	}
	return strings.Join(lines, "\n")
}

// renderBox draws content in a rounded border with a title line.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	styles := m.theme.Styles()
	box := styles.Box
	if focused {
		box = styles.BoxFocus
	}
	inner := maxInt(height-2, 1)
	body := styles.AccentText.Bold(true).Render(title) + "\n" + content
	return box.
		Width(maxInt(width-2, 1)).
		Height(inner).
		MaxHeight(height).
		Padding(0, 1).
		Render(body)
}

// renderStatusLine shows the latest notice.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	if m.notice == "" {
		if m.snapshot.UpdatedAt.IsZero() {
			return ""
		}
		return styles.FaintText.Render("Updated " + m.snapshot.UpdatedAt.Format("15:04:05"))
	}
	return styles.MutedText.Render(truncate(m.notice, maxInt(m.width, 10)))
}
