// Command gidget watches filesystem paths for kernel inotify events and,
// per event, runs a configured script under a local account, mailing any
// captured output.
package main

import (
	"errors"
	"fmt"
	"log/syslog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gidget-io/gidget/pkg/config"
	"github.com/gidget-io/gidget/pkg/daemon"
	"github.com/gidget-io/gidget/pkg/eventloop"
	"github.com/gidget-io/gidget/pkg/gidget"
	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/signaling"
	"github.com/gidget-io/gidget/pkg/watch"
	"github.com/gidget-io/gidget/pkg/worker"
)

// defaultConfigPath is used when neither -c nor a bare positional
// argument is supplied.
const defaultConfigPath = "/etc/gidget.conf"

// defaultSyslogLevel is the priority -s assumes when given with no
// argument.
const defaultSyslogLevel = 3

// options collects the parsed command line.
type options struct {
	configPath  string
	daemonize   bool
	logPath     string
	pidPath     string
	syslogLevel int
	syslogSet   bool
	showVersion bool
	verbose     bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses the command line and drives the daemon, returning the
// process exit status rather than calling os.Exit directly so it can be
// exercised in isolation if ever needed.
func run(argv []string) int {
	opts, err := parseOptions(argv)
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if opts.showVersion {
		fmt.Println("gidget", gidget.Version)
		return 0
	}

	logger := newLogger(opts)

	if opts.daemonize && !daemon.IsDaemonized() {
		if err := daemon.Detach(); err != nil {
			logger.Fatalf(2, "unable to daemonize: %v", err)
		}
		return 0
	}

	return runDaemon(opts, logger)
}

// parseOptions parses argv with a single cobra command carrying the full
// flag set, including the bare positional configuration-path fallback
// and -s's "no argument means level 3" default.
func parseOptions(argv []string) (options, error) {
	var opts options

	cmd := &cobra.Command{
		Use:           "gidget [config-path]",
		Short:         "watch filesystem paths and run scripts on kernel events",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.configPath = args[0]
			}
			opts.syslogSet = cmd.Flags().Changed("syslog")
			return nil
		},
	}
	cmd.SetArgs(argv)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "configuration file path")
	flags.BoolVarP(&opts.daemonize, "daemon", "d", false, "detach and run as a daemon")
	flags.StringVarP(&opts.logPath, "logfile", "l", "", "log file path (implies logging to file)")
	flags.StringVarP(&opts.pidPath, "pidfile", "p", "", "pid file path")
	flags.IntVarP(&opts.syslogLevel, "syslog", "s", defaultSyslogLevel, "submit log lines to syslog at the given priority (0-7)")
	flags.Lookup("syslog").NoOptDefVal = fmt.Sprintf("%d", defaultSyslogLevel)
	flags.BoolVarP(&opts.showVersion, "version", "V", false, "print version and exit")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose diagnostics")
	flags.BoolP("usage", "?", false, "show usage")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if show, _ := flags.GetBool("usage"); show {
			cmd.Help()
			return pflag.ErrHelp
		}
		return nil
	}

	if err := cmd.Execute(); err != nil {
		return options{}, err
	}
	return opts, nil
}

// newLogger constructs the root logger per opts, wiring a syslog writer
// when -s was given.
func newLogger(opts options) *logging.Logger {
	var syslogWriter *syslog.Writer
	priority := syslog.Priority(defaultSyslogLevel)
	if opts.syslogSet {
		priority = syslog.Priority(opts.syslogLevel)
		if w, err := syslog.New(syslog.LOG_DAEMON, "gidget"); err == nil {
			syslogWriter = w
		}
	}
	return logging.New(os.Stdout, os.Stderr, syslogWriter, priority, opts.verbose)
}

// runDaemon builds and drives the event loop. It is reached either by a
// foreground invocation (no -d) or by the re-exec'd, already-detached
// child of Detach.
func runDaemon(opts options, logger *logging.Logger) int {
	paths, err := daemon.Resolve(opts.pidPath, opts.logPath)
	if err != nil {
		logger.Fatalf(2, "unable to resolve daemon paths: %v", err)
	}

	var lock *daemon.Lock
	if daemon.IsDaemonized() {
		daemon.Finalize()

		logFile, err := daemon.OpenLog(paths.LogPath)
		if err != nil {
			logger.Fatalf(2, "unable to open log file: %v", err)
		}
		logger.SetOutputs(logFile, logFile)

		acquired, err := daemon.AcquireLock(paths.PIDPath, logger)
		if err != nil {
			logger.Fatalf(2, "unable to acquire pidfile lock: %v", err)
		}
		lock = acquired
	} else if opts.logPath != "" {
		logFile, err := daemon.OpenLog(paths.LogPath)
		if err != nil {
			logger.Fatalf(2, "unable to open log file: %v", err)
		}
		logger.SetOutputs(logFile, logFile)
	}

	tricks, err := config.Load(opts.configPath, logger)
	if err != nil {
		logger.Fatalf(2, "unable to load configuration: %v", err)
	}
	logger.Infof("loaded %d trick(s) from %s", len(tricks), opts.configPath)

	maxNameLength, err := config.RunningMaxNameLength(tricks)
	if err != nil {
		logger.Fatalf(2, "unable to determine maximum name length: %v", err)
	}

	registry, err := watch.Open()
	if err != nil {
		logger.Fatalf(2, "unable to create watch instance: %v", err)
	}
	defer registry.Close()

	for _, trick := range tricks {
		if err := registry.Register(trick); err != nil {
			if errors.Is(err, watch.ErrNonSequentialWatch) {
				logger.Fatalf(2, "%v", err)
			}
			logger.Errorf("line %d: %v", trick.Line, err)
			continue
		}
	}
	registry.SetBufferSize(maxNameLength)

	discipline, err := signaling.Install(logger)
	if err != nil {
		logger.Fatalf(2, "unable to install signal discipline: %v", err)
	}

	w := &worker.Worker{Logger: logger}

	loop := &eventloop.Loop{
		Registry:      registry,
		Discipline:    discipline,
		Logger:        logger,
		Dispatcher:    w,
		MaxNameLength: int(maxNameLength),
		ReopenLogs: func() error {
			if !daemon.IsDaemonized() && opts.logPath == "" {
				return nil
			}
			logFile, err := daemon.OpenLog(paths.LogPath)
			if err != nil {
				return err
			}
			logger.SetOutputs(logFile, logFile)
			return nil
		},
	}

	logger.Info("gidget started")
	if err := loop.Run(); err != nil {
		if lock != nil {
			lock.Release()
		}
		logger.Fatalf(2, "%v", err)
	}

	if lock != nil {
		lock.Release()
	}
	return 0
}
