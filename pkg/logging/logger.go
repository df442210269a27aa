// Package logging provides gidget's timestamped log lines of the form
//
//	gidget[pid]: YYYY-MM-DD HH:MM:SS <text>
//
// written to standard output or standard error depending on status,
// optionally duplicated to the system log, with fatal conditions
// terminating the process after the line has been flushed.
package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// timestampLayout is the format used for the timestamp portion of every
// log line.
const timestampLayout = "2006-01-02 15:04:05"

// Fallback literals substituted for empty log text, preserved verbatim
// for existing log-scanner compatibility.
const (
	missingLogString = "Missing log string. This should not happen."
	skyIsFalling     = "The sky is falling!"
)

// Logger is the main logger type. It still functions if nil: a nil
// *Logger discards everything rather than panicking, so components can
// be constructed before a concrete logging destination has been
// decided. Logger is safe for concurrent use from multiple worker
// goroutines.
type Logger struct {
	mu sync.Mutex

	// prefix is any sublogger prefix, dotted onto the front of each line.
	prefix string

	// pid is the process id embedded in every line, gidget[pid]: ...
	pid int

	// out and errOut are the normal and error destinations. In daemon
	// mode both point at the same redirected log file.
	out    io.Writer
	errOut io.Writer

	// syslogWriter, if non-nil, receives a duplicate of every line at
	// priority syslogPriority.
	syslogWriter   *syslog.Writer
	syslogPriority syslog.Priority

	// verbose enables extra diagnostics, including the decoded
	// event-mask dump.
	verbose bool
}

// New constructs the root logger, writing to out/errOut and, if
// syslogWriter is non-nil, duplicating every line to the system log at
// syslogPriority.
func New(out, errOut io.Writer, syslogWriter *syslog.Writer, syslogPriority syslog.Priority, verbose bool) *Logger {
	return &Logger{
		pid:            os.Getpid(),
		out:            out,
		errOut:         errOut,
		syslogWriter:   syslogWriter,
		syslogPriority: syslogPriority,
		verbose:        verbose,
	}
}

// Sublogger creates a new sublogger with the specified name, sharing the
// parent's destinations. If the receiver is nil, the sublogger is nil
// too, so sublogger chains can be built before a concrete root logger
// exists.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		prefix:         prefix,
		pid:            l.pid,
		out:            l.out,
		errOut:         l.errOut,
		syslogWriter:   l.syslogWriter,
		syslogPriority: l.syslogPriority,
		verbose:        l.verbose,
	}
}

// SetOutputs redirects the logger's destinations, used by the event loop
// to reopen the log file on SIGHUP.
func (l *Logger) SetOutputs(out, errOut io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
	l.errOut = errOut
}

// Verbose reports whether verbose diagnostics are enabled.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// format renders the full log line, including prefix and timestamp.
func (l *Logger) format(text string) string {
	if l.prefix != "" {
		text = fmt.Sprintf("[%s] %s", l.prefix, text)
	}
	return fmt.Sprintf("gidget[%d]: %s %s", l.pid, time.Now().Format(timestampLayout), text)
}

// log writes one line to the stream selected by status, then exits the
// process if status is nonzero. A nil receiver silently discards the
// line (but still exits on a nonzero status, since fatality cannot be
// skipped just because logging is unconfigured). Empty text is replaced
// with the preserved compatibility literals.
func (l *Logger) log(status int, text string) {
	if l == nil {
		if status != 0 {
			os.Exit(status)
		}
		return
	}

	if text == "" {
		if status == 0 {
			text = missingLogString
		} else {
			text = skyIsFalling
		}
	}

	line := l.format(text)

	l.mu.Lock()
	dest := l.out
	if status != 0 {
		dest = l.errOut
	}
	syslogWriter := l.syslogWriter
	priority := l.syslogPriority
	l.mu.Unlock()

	if dest != nil {
		fmt.Fprintln(dest, line)
	}
	if syslogWriter != nil {
		writeSyslog(syslogWriter, priority, line)
	}

	if status != 0 {
		os.Exit(status)
	}
}

// writeSyslog submits line to the system log at the configured
// priority. The priority levels mirror standard syslog severities
// (0 = LOG_EMERG through 7 = LOG_DEBUG).
func writeSyslog(w *syslog.Writer, priority syslog.Priority, line string) {
	switch priority {
	case syslog.LOG_EMERG:
		w.Emerg(line)
	case syslog.LOG_ALERT:
		w.Alert(line)
	case syslog.LOG_CRIT:
		w.Crit(line)
	case syslog.LOG_ERR:
		w.Err(line)
	case syslog.LOG_WARNING:
		w.Warning(line)
	case syslog.LOG_NOTICE:
		w.Notice(line)
	case syslog.LOG_INFO:
		w.Info(line)
	default:
		w.Debug(line)
	}
}

// Info logs a successful, non-fatal line to the normal stream.
func (l *Logger) Info(text string) {
	l.log(0, text)
}

// Infof logs a formatted, non-fatal line to the normal stream.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(0, fmt.Sprintf(format, v...))
}

// Printf is an alias for Infof, a stdlib-log-style method name for
// callers that don't care about fatality.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

// logError writes to the error stream without exiting, reusing log's
// formatting but bypassing its exit-on-nonzero-status behavior.
func (l *Logger) logError(text string) {
	if l == nil {
		return
	}
	if text == "" {
		text = skyIsFalling
	}
	line := l.format(text)

	l.mu.Lock()
	dest := l.errOut
	syslogWriter := l.syslogWriter
	priority := l.syslogPriority
	l.mu.Unlock()

	if dest != nil {
		fmt.Fprintln(dest, line)
	}
	if syslogWriter != nil {
		writeSyslog(syslogWriter, priority, line)
	}
}

// Error logs a non-fatal error line to the error stream, colorized for
// interactive (non-daemon) invocation.
func (l *Logger) Error(text string) {
	l.logError(color.RedString("%s", text))
}

// Errorf logs a formatted, non-fatal error line to the error stream.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Error(fmt.Sprintf(format, v...))
}

// Warn logs a non-fatal warning line to the error stream, colorized for
// interactive (non-daemon) invocation.
func (l *Logger) Warn(text string) {
	l.logError(color.YellowString("%s", text))
}

// Warnf formats and logs a non-fatal warning line.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Warn(fmt.Sprintf(format, v...))
}

// Fatal logs text to the error stream and then terminates the process
// with the given nonzero status. Every fatal condition is reported
// through the logger before the process exits, so the system log sees a
// terminating line whenever possible.
func (l *Logger) Fatal(status int, text string) {
	if status == 0 {
		status = 1
	}
	l.log(status, text)
}

// Fatalf formats and logs a fatal error, then exits with status.
func (l *Logger) Fatalf(status int, format string, v ...interface{}) {
	l.Fatal(status, fmt.Sprintf(format, v...))
}

// Debug logs a line only when verbose diagnostics are enabled.
func (l *Logger) Debug(text string) {
	if l.Verbose() {
		l.Info(text)
	}
}

// Debugf formats and logs a line only when verbose diagnostics are
// enabled.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.Verbose() {
		l.Infof(format, v...)
	}
}
