package output

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/certtools/intelmq-elastic-output/pkg/output/build"
	"github.com/certtools/intelmq-elastic-output/pkg/output/elastic"
	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
	"github.com/certtools/intelmq-elastic-output/pkg/output/queue"
)

// NewStandaloneBot builds a bot from command line flags and the viper
// configuration, connecting the Elasticsearch client and the queue
// consumer.
func NewStandaloneBot(ctx context.Context, botName string) (*Bot, error) {
	// Parse args
	parseStandaloneArgs()

	if viper.GetBool("version") {
		showVersionAndExit(botName)
	}

	// Load configuration with viper
	err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Now that the config is loaded, setup logging
	err = setupLogging(log.RootLogger)
	if err != nil {
		return nil, err
	}

	store, err := elastic.NewClient(getElasticConfig())
	if err != nil {
		return nil, err
	}

	consumer, err := queue.NewConsumer(ctx, getConsumerConfig())
	if err != nil {
		return nil, err
	}

	defer log.Debugf("starting %s", botName)

	return NewBot(
		botName,
		log.RootLogger,
		viper.GetBool("dry_run"),
		WithStore(store),
		WithReceiver(consumer),
		WithIndex(getBaseIndex(), getRotateIndex()),
		WithSanitizer(getKeyChar(), getReplacementChar()),
		WithFlattenFields(getFlattenFields()),
	)
}

func showVersionAndExit(botName string) {
	buildInfo := build.GetBuildInfo()

	// Show the version
	fmt.Printf(
		"%s Version: %s, Platform: %s, GoVersion: %s, GitCommit: %s, BuildDate: %s\n",
		botName,
		buildInfo.Version,
		fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		runtime.Version(),
		buildInfo.Commit,
		buildInfo.Date,
	)
	os.Exit(0)
}

func loadConfig() error {
	envPrefix := viper.GetString("env_prefix")

	viper.AutomaticEnv()
	if envPrefix != "" {
		viper.SetEnvPrefix(envPrefix)
	}

	// Replace . with _ so that nested key lookups can be done using
	// shell-safe environment variable ids.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	configPath := viper.GetString("config_path")
	if configPath == "" {
		return NewConfigWithPaths()
	}

	return NewConfigWithFile(configPath)
}

func setupLogging(logger *logrus.Logger) error {
	verbose := viper.GetBool("verbose")

	if viper.IsSet("log.fileName") {
		file, err := os.OpenFile(
			viper.GetString("log.fileName"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0666,
		)
		if err != nil {
			log.Warnf("failed to log to file, using default stderr: %s", err)
		} else {
			logger.Out = file
		}
	}

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return nil
	}

	logLevel := viper.GetString("log.level")
	if logLevel != "" {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			log.Warnf("failed to parse log level, default will be used: %s", err)
		} else {
			logger.SetLevel(level)
		}
	}

	return nil
}

func parseStandaloneArgs() {
	pflag.Bool(
		"verbose",
		false,
		"enable verbose logging",
	)
	pflag.Bool(
		"dry_run",
		false,
		"log documents instead of indexing them",
	)
	pflag.Bool(
		"version",
		false,
		"display version information",
	)
	pflag.String(
		"config_path",
		"",
		"path to YML configuration file",
	)
	pflag.String(
		"env_prefix",
		"",
		"prefix to use for environment variable lookup",
	)

	pflag.Parse()

	// Bind pflags to viper so flags and config keys share one lookup.
	viper.BindPFlags(pflag.CommandLine)
}
