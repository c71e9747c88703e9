package diag

// Reporter is the minimal contract for receiving diagnostics from a stage.
// Implementations: BagReporter, ReporterFunc, MultiReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// MultiReporter fans a diagnostic out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(d Diagnostic) {
	for _, r := range m {
		if r != nil {
			r.Report(d)
		}
	}
}

// LineReporter returns a function that extracts a diagnostic from each stderr
// line of stage and reports it.
func LineReporter(stage Stage, r Reporter) func(line string) {
	return func(line string) {
		if r == nil {
			return
		}
		r.Report(Extract(stage, line))
	}
}
