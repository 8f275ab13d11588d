package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which panes stack vertically.
	LayoutCompactWidth = 100

	// LayoutMinPreviewRows is the smallest preview worth drawing.
	LayoutMinPreviewRows = 4
)

// Log display limits.
const (
	// LogTailLines is the number of log file lines read per refresh.
	LogTailLines = 2000
)

// Timing constants.
const (
	// LogRefreshInterval is the minimum time between log file reads while following.
	LogRefreshInterval = time.Second

	// CameraOpTimeout bounds open, switch and capture commands.
	CameraOpTimeout = 15 * time.Second

	// PreviewTimeout bounds a single preview grab.
	PreviewTimeout = 3 * time.Second

	// DefaultPreviewInterval is used when the config leaves it unset.
	DefaultPreviewInterval = 250 * time.Millisecond
)
