package config

import (
	"flag"
	"strings"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN; empty selects the in-memory store
//	-s string   session signing secret
//	-e string   environment (development, production, test)
//	-u string   public base URL used in reset links
//
// Arguments not in the list are dropped before parsing so other
// components may share the command line.
func parseFlags(config *Config, args []string) error {
	args = filterArgs(args, []string{"-a", "-d", "-s", "-e", "-u"})

	fs := flag.NewFlagSet("agora", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Secret, "s", config.Secret, "session signing secret")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.BaseURL, "u", config.BaseURL, "public base URL")

	return fs.Parse(args)
}

// filterArgs keeps only allowed flags and their values, in either
// "-f value" or "-f=value" form.
func filterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}
