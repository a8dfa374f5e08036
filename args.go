package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gavel/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int64("s3-rate-limit-per-hour", 30, "")
	pflag.Int64("s3-max-upload-bytes", 5<<20, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")

	// redis stream keys
	pflag.String("redis-stream-key-for-bids", "gavel-shared-bid-stream", "")

	// user directory config
	pflag.String("user-directory-base-url", "", "")
	pflag.String("user-directory-service-id", "", "")
	pflag.String("user-directory-service-role", "ADMIN", "")

	// auth config
	pflag.String("auth-public-key", "", "")

	// auction config
	pflag.Float64("auction-minimum-assessment", 8, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GAVEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			S3: api.S3Config{
				Endpoint:         viper.GetString("s3-endpoint"),
				Bucket:           viper.GetString("s3-bucket"),
				PublicBaseURL:    viper.GetString("s3-public-base-url"),
				AccessKeyID:      viper.GetString("s3-access-key-id"),
				SecretAccessKey:  viper.GetString("s3-secret-access-key"),
				RateLimitPerHour: viper.GetInt64("s3-rate-limit-per-hour"),
				MaxUploadBytes:   viper.GetInt64("s3-max-upload-bytes"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:     viper.GetString("redis-addr"),
				Password: viper.GetString("redis-password"),
				DB:       viper.GetInt("redis-db"),
				StreamKeys: api.RedisStreamKeys{
					Bids: viper.GetString("redis-stream-key-for-bids"),
				},
			},
			UserDirectory: api.UserDirectoryConfig{
				BaseURL:     viper.GetString("user-directory-base-url"),
				ServiceID:   viper.GetString("user-directory-service-id"),
				ServiceRole: viper.GetString("user-directory-service-role"),
			},
			Auth: api.AuthConfig{
				PublicKeyPEM: viper.GetString("auth-public-key"),
			},
			Auction: api.AuctionConfig{
				MinimumAssessment: viper.GetFloat64("auction-minimum-assessment"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" &&
		args.ServerConfig.DB.Host != "" &&
		args.ServerConfig.Redis.Addr != "" &&
		args.ServerConfig.UserDirectory.BaseURL != "" &&
		args.ServerConfig.UserDirectory.ServiceID != "" &&
		args.ServerConfig.Auth.PublicKeyPEM != ""
}
