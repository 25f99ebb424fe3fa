package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Resource is one entry of the resource catalog, keyed by logical name.
type Resource struct {
	Type       string         `yaml:"Type"`
	Properties map[string]any `yaml:"Properties"`
}

// EventSource is a declared event source as written in the catalog file.
// SQS is either an ARN string or an object with arn/queueName/batchSize/enabled.
type EventSource struct {
	Function string `mapstructure:"function"`
	SQS      any    `mapstructure:"sqs"`
}

// Catalog holds the declared resources and event sources.
type Catalog struct {
	Resources map[string]Resource
	Events    []EventSource
}

type resourceFile struct {
	Resources map[string]Resource `yaml:"resources"`
}

// Load reads the catalog at path. YAML and JSON are accepted.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var events []EventSource
	if err := v.UnmarshalKey("events", &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}

	// viper folds key case; resource properties are SQS attribute names and must keep theirs.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var rf resourceFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("unmarshal resources: %w", err)
	}

	return &Catalog{Resources: rf.Resources, Events: events}, nil
}

// PropertiesFor returns the Properties of the resource whose QueueName equals
// queueName, or nil. Logical names are scanned in sorted order.
func (c *Catalog) PropertiesFor(queueName string) map[string]any {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		props := c.Resources[name].Properties
		if props == nil {
			continue
		}
		if qn, ok := props["QueueName"].(string); ok && qn == queueName {
			return props
		}
	}
	return nil
}

// Definitions builds one Definition per declared event source.
func (c *Catalog) Definitions(region, accountID string) ([]Definition, error) {
	defs := make([]Definition, 0, len(c.Events))
	for i, ev := range c.Events {
		def, err := NewDefinition(ev.Function, ev.SQS, region, accountID, c.Resources)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Function, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
