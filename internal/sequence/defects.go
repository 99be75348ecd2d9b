package sequence

import (
	"fmt"
	"strings"

	"github.com/duyyudus/video-tools/internal/faults"
)

// DefectKind names a validation rule that a folder violated.
type DefectKind string

const (
	EmptySource         DefectKind = "EmptySource"
	MixedExtensions     DefectKind = "MixedExtensions"
	InconsistentPadding DefectKind = "InconsistentPadding"
	GapInSequence       DefectKind = "GapInSequence"
	DuplicateIndex      DefectKind = "DuplicateIndex"
)

// Defect is one violated rule with the paths that caused it.
type Defect struct {
	Kind   DefectKind
	Detail string
	Paths  []string
	// Indices holds the missing indices for GapInSequence and the repeated
	// indices for DuplicateIndex.
	Indices []int
}

func (d Defect) String() string {
	return string(d.Kind) + ": " + d.Detail
}

// ValidationError aggregates every defect found in one folder.
type ValidationError struct {
	Folder  string
	Defects []Defect
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Defects))
	for _, d := range e.Defects {
		parts = append(parts, d.String())
	}
	noun := "defects"
	if len(e.Defects) == 1 {
		noun = "defect"
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Folder, len(e.Defects), noun, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == faults.ErrValidation
}

// Has reports whether a defect of kind was found.
func (e *ValidationError) Has(kind DefectKind) bool {
	for _, d := range e.Defects {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Kinds lists the defect kinds in rule order.
func (e *ValidationError) Kinds() []DefectKind {
	kinds := make([]DefectKind, 0, len(e.Defects))
	for _, d := range e.Defects {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}
