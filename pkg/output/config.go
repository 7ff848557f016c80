package output

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/certtools/intelmq-elastic-output/pkg/output/elastic"
	"github.com/certtools/intelmq-elastic-output/pkg/output/queue"
)

const (
	DEFAULT_ELASTIC_HOST     = "127.0.0.1"
	DEFAULT_ELASTIC_PORT     = 9200
	DEFAULT_ELASTIC_INDEX    = "intelmq"
	DEFAULT_KEY_CHAR         = "."
	DEFAULT_REPLACEMENT_CHAR = "_"
	DEFAULT_QUEUE_ADDRESS    = "127.0.0.1:6379"
	DEFAULT_QUEUE_DB         = 2
	DEFAULT_SOURCE_QUEUE     = "elasticsearch-output-queue"
	DEFAULT_POLL_TIMEOUT     = time.Second
)

func NewConfigWithFile(configFile string) error {
	viper.SetConfigFile(configFile)

	return newConfig()
}

func NewConfigWithPaths() error {
	viper.SetConfigName("config")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")

	return newConfig()
}

func newConfig() error {
	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	return nil
}

func getElasticConfig() elastic.Config {
	host := viper.GetString("elastic.host")
	if host == "" {
		host = DEFAULT_ELASTIC_HOST
	}

	port := viper.GetInt("elastic.port")
	if port == 0 {
		port = DEFAULT_ELASTIC_PORT
	}

	return elastic.Config{
		Host:     host,
		Port:     port,
		Username: viper.GetString("elastic.username"),
		Password: viper.GetString("elastic.password"),
	}
}

func getBaseIndex() string {
	index := viper.GetString("elastic.index")
	if index == "" {
		index = DEFAULT_ELASTIC_INDEX
	}
	return index
}

func getRotateIndex() bool {
	return viper.GetBool("elastic.rotateIndex")
}

func getKeyChar() string {
	keyChar := viper.GetString("output.keyChar")
	if keyChar == "" {
		keyChar = DEFAULT_KEY_CHAR
	}
	return keyChar
}

func getReplacementChar() string {
	replacement := viper.GetString("output.replacementChar")
	if replacement == "" {
		replacement = DEFAULT_REPLACEMENT_CHAR
	}
	return replacement
}

// getFlattenFields returns the fields to flatten. The value may be a
// list or a single comma-delimited string.
func getFlattenFields() []string {
	var fields []string

	if raw, ok := viper.Get("output.flattenFields").(string); ok {
		for _, field := range strings.Split(raw, ",") {
			field = strings.TrimSpace(field)
			if field != "" {
				fields = append(fields, field)
			}
		}
	} else {
		fields = viper.GetStringSlice("output.flattenFields")
	}

	if len(fields) == 0 {
		fields = []string{"extra"}
	}

	return fields
}

func getConsumerConfig() queue.ConsumerConfig {
	address := viper.GetString("queue.address")
	if address == "" {
		address = DEFAULT_QUEUE_ADDRESS
	}

	db := DEFAULT_QUEUE_DB
	if viper.IsSet("queue.db") {
		db = viper.GetInt("queue.db")
	}

	sourceQueue := viper.GetString("queue.sourceQueue")
	if sourceQueue == "" {
		sourceQueue = DEFAULT_SOURCE_QUEUE
	}

	pollTimeout := viper.GetDuration("queue.pollTimeout")
	if pollTimeout == 0 {
		pollTimeout = DEFAULT_POLL_TIMEOUT
	}

	return queue.ConsumerConfig{
		Address:         address,
		Password:        viper.GetString("queue.password"),
		DB:              db,
		SourceQueue:     sourceQueue,
		DeadLetterQueue: viper.GetString("queue.deadLetterQueue"),
		PollTimeout:     pollTimeout,
	}
}

func GetMetricsAddress() string {
	return viper.GetString("metrics.address")
}
