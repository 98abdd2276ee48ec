package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/authcore/internal/flagx"
)

var knownFlags = []string{"-a", "-m", "-d", "-storage", "-redis", "-s", "-i", "-t", "-r", "-log-format"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            gRPC bind address (e.g., ":50051")
//	-m string            metrics bind address, "" disables
//	-d string            PostgreSQL DSN
//	-storage string      session storage: postgres, redis or memory
//	-redis string        Redis address
//	-s string            JWT HMAC secret key
//	-i string            JWT issuer
//	-t duration          access token validity (e.g., "15m")
//	-r duration          refresh token validity (e.g., "168h")
//	-log-format string   json, text or zerolog
//
// os.Args is filtered first with flagx.FilterArgs so flags owned by other
// components (like -c) do not cause parse errors.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage, "storage", config.Storage, "session storage (postgres, redis, memory)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json, text, zerolog)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
