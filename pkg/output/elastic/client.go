package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
	"github.com/certtools/intelmq-elastic-output/pkg/output/model"
)

// Client wraps the Elasticsearch client with the few operations the
// output bot needs.
type Client struct {
	es *elasticsearch.Client
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewClient(cfg Config) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)},
	}

	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	return &Client{es: es}, nil
}

// IndexDocument writes one document to the given index.
func (c *Client) IndexDocument(ctx context.Context, index string, id string, doc model.Event) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	res, err := c.es.Index(
		index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("error indexing document into %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document into %s with status %d", index, res.StatusCode)
	}

	return nil
}

// IndexExists reports whether the named index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists(
		[]string{name},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("error checking index %s: %w", name, err)
	}
	defer res.Body.Close()

	return existsFromStatus(res, name)
}

// CreateIndex creates the named index. A "resource already exists"
// response is not an error; another bot instance may have won the race.
func (c *Client) CreateIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error creating index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("error creating index %s with status %d", name, res.StatusCode)
	}

	return nil
}

// TemplateExists reports whether an index template with the given name
// exists, checking composable templates first and falling back to the
// legacy template API.
func (c *Client) TemplateExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.ExistsIndexTemplate(
		name,
		c.es.Indices.ExistsIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("error checking index template %s: %w", name, err)
	}
	defer res.Body.Close()

	exists, err := existsFromStatus(res, name)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	log.Debugf("no composable index template %s, checking legacy templates", name)

	legacy, err := c.es.Indices.ExistsTemplate(
		[]string{name},
		c.es.Indices.ExistsTemplate.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("error checking legacy template %s: %w", name, err)
	}
	defer legacy.Body.Close()

	return existsFromStatus(legacy, name)
}

func existsFromStatus(res *esapi.Response, name string) (bool, error) {
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d checking %s", res.StatusCode, name)
	}
}
