package errors

import "sync/atomic"

// Reporter receives invariant violations. Reporters are expected not to
// return: internal corruption has no recovery path.
type Reporter interface {
	Report(err *Error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err *Error)

// Report calls f(err).
func (f ReporterFunc) Report(err *Error) {
	f(err)
}

// PanicReporter panics with the violation. It is the default reporter.
type PanicReporter struct{}

// Report panics with err.
func (PanicReporter) Report(err *Error) {
	panic(err)
}

var reporter atomic.Value // holds reporterBox

type reporterBox struct {
	r Reporter
}

func init() {
	reporter.Store(reporterBox{r: PanicReporter{}})
}

// SetReporter installs r as the fail-fast reporter and returns the previous one.
// A nil r restores PanicReporter.
func SetReporter(r Reporter) Reporter {
	if r == nil {
		r = PanicReporter{}
	}
	prev := reporter.Swap(reporterBox{r: r})
	return prev.(reporterBox).r
}

// Fatal routes err to the installed reporter unconditionally.
func Fatal(err *Error) {
	reporter.Load().(reporterBox).r.Report(err)
}

// Assert reports the error built by fn when cond is false. The builder is only
// invoked on failure. With the objectcore_release build tag the check is
// compiled out entirely.
func Assert(cond bool, fn func() *Error) {
	if AssertionsEnabled && !cond {
		Fatal(fn())
	}
}
