package errors

import "fmt"

// WarningKind classifies non-fatal findings. Warnings accumulate alongside a
// successful per-package result and never abort the batch.
type WarningKind string

const (
	WarnParseDegraded          WarningKind = "ParseDegraded"
	WarnUnresolvedReference    WarningKind = "UnresolvedReference"
	WarnAmbiguousReference     WarningKind = "AmbiguousReference"
	WarnNamespaceInconsistency WarningKind = "NamespaceInconsistency"
	WarnMissingVersionAction   WarningKind = "MissingVersionAction"
)

type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}

func Warningf(kind WarningKind, format string, args ...interface{}) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
