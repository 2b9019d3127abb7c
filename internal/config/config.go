package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds netsimd's process-wide configuration, populated from CLI
// flags with environment-variable fallbacks. Flags take precedence over
// environment variables, matching the teacher's env-then-flag-override
// pattern.
type Config struct {
	// StartupFdStr carries the inherited-fds JSON blob used by Cuttlefish
	// instances ("-s"); empty when launched standalone.
	StartupFdStr string
	// DevMode ("-d") is parsed and stored; no component reads it, so it
	// changes nothing at run time.
	DevMode bool
	// CtrlPropsFile ("-p") points at a control-properties file consumed
	// by the (out-of-scope) CLI/web front ends; netsimd stores the path
	// and never reads the file itself.
	CtrlPropsFile string

	HCIPort      int
	Instance     int
	InstanceNum  int
	NoCLIUI      bool
	NoWebUI      bool
	LogToStderr  bool
	GRPCPort     int // 0 means "let the OS choose an ephemeral port"
	WebAddr      string
	InactivityTimeoutSecs int
}

// Load parses command-line flags and environment variables into a Config.
func Load() *Config {
	cfg := &Config{}

	grpcPortEnv := getEnvInt("NETSIM_GRPC_PORT", 0)
	hciPortEnv := getEnvInt("NETSIM_HCI_PORT", 0)

	flag.StringVar(&cfg.StartupFdStr, "s", "", "inherited fds JSON string (Cuttlefish instances only)")
	flag.BoolVar(&cfg.DevMode, "d", false, "enable developer mode")
	flag.StringVar(&cfg.CtrlPropsFile, "p", "", "path to a control properties file")
	flag.IntVar(&cfg.HCIPort, "hci_port", hciPortEnv, "raw HCI TCP port (0 = derive from instance number)")
	flag.IntVar(&cfg.Instance, "i", 1, "instance number")
	flag.IntVar(&cfg.Instance, "instance", 1, "instance number (long form)")
	flag.IntVar(&cfg.InstanceNum, "I", 0, "instance number, alternate numbering")
	flag.IntVar(&cfg.InstanceNum, "instance_num", 0, "instance number, alternate numbering (long form)")
	flag.BoolVar(&cfg.NoCLIUI, "f", false, "disable the CLI UI front end")
	flag.BoolVar(&cfg.NoCLIUI, "no_cli_ui", false, "disable the CLI UI front end (long form)")
	flag.BoolVar(&cfg.NoWebUI, "w", false, "disable the web UI front end")
	flag.BoolVar(&cfg.NoWebUI, "no_web_ui", false, "disable the web UI front end (long form)")
	flag.BoolVar(&cfg.LogToStderr, "l", false, "log to stderr")
	flag.BoolVar(&cfg.LogToStderr, "logtostderr", false, "log to stderr (long form)")
	flag.IntVar(&cfg.GRPCPort, "grpc_port", grpcPortEnv, "gRPC listen port (0 = ephemeral, written to the discovery file)")
	flag.StringVar(&cfg.WebAddr, "web_addr", ":7681", "REST/WebSocket front-end listen address")
	flag.IntVar(&cfg.InactivityTimeoutSecs, "inactivity_timeout", 300, "seconds with zero attached chips before netsimd exits")

	// "-g" (grpc_startup) is a vestigial flag from the source this spec
	// was distilled from; the spec marks it ambiguous and directs us to
	// treat it as a no-op rather than guess intent.
	var deprecatedGrpcStartup bool
	flag.BoolVar(&deprecatedGrpcStartup, "g", false, "deprecated, no-op")

	flag.Parse()

	if cfg.HCIPort == 0 {
		cfg.HCIPort = 6402 + cfg.InstanceNum
	}

	return cfg
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
