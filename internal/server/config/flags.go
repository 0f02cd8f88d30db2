package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-a", "-l", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
	"-url", "-storage", "-ots", "-redis", "-mail", "-templates",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          gRPC bind address (e.g., ":50051")
//	-l string          HTTP bind address (e.g., ":8080")
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret key
//	-t int             access token validity, minutes
//	-r int             refresh token validity, minutes
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-g string          S3 region
//	-e string          S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-url string        public base URL used in email links
//	-storage string    postgres | memory
//	-ots string        one-time token store: sql | redis
//	-redis string      redis address
//	-mail string       mail sender: log | s3
//	-templates string  mail template override directory
//
// Notes:
//   - args are first filtered to the flags above using flagx.FilterArgs,
//     avoiding collisions with -c/-config and other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
//   - Invalid values panic.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.PublicURL, "url", config.PublicURL, "public base URL")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend")
	fs.StringVar(&config.OneTimeStore, "ots", config.OneTimeStore, "one-time token store")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.MailSender, "mail", config.MailSender, "mail sender")
	fs.StringVar(&config.MailTemplateDir, "templates", config.MailTemplateDir, "mail template directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only touch durations that were given, so sub-minute values from
	// other layers survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
