package tui

import (
	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/layout"
)

// settledMsg carries the container measurement once the terminal size
// stopped changing.
type settledMsg struct {
	err       error
	container layout.Container
	settled   bool
}

// reloadedMsg carries a freshly loaded quote.
type reloadedMsg struct {
	err error
	doc export.Document
}
