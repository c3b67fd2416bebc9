package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []Config `json:"publishers" yaml:"publishers"`
}

// Config is a single publisher entry declared in the publishers file.
type Config struct {
	ID      string       `json:"id" yaml:"id"`
	Type    string       `json:"type" yaml:"type"`
	Enabled *bool        `json:"enabled" yaml:"enabled"`
	Queue   *QueueConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPConfig  `json:"http" yaml:"http"`
}

// QueueConfig selects a cloud queue provider.
type QueueConfig struct {
	Provider string     `json:"provider" yaml:"provider"`
	SQS      *SQSConfig `json:"sqs" yaml:"sqs"`
	SNS      *SNSConfig `json:"sns" yaml:"sns"`
	GCP      *GCPConfig `json:"gcp" yaml:"gcp"`
}

// AWSCredentials are optional static keys; when empty the default AWS chain is used.
type AWSCredentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSConfig holds AWS SQS settings.
type SQSConfig struct {
	QueueURL       string `json:"queue_url" yaml:"queue_url"`
	AWSCredentials `yaml:",inline"`
}

// SNSConfig holds AWS SNS settings.
type SNSConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `yaml:",inline"`
}

// GCPConfig holds Pub/Sub topic settings.
type GCPConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPConfig holds webhook settings.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (c Config) EnabledValue() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadFile reads a YAML or JSON publishers file, expanding ${ENV} references,
// and returns the validated enabled entries.
func LoadFile(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// Parse decodes publishers file content. ext picks the decoder; empty tries both.
func Parse(data []byte, ext string) ([]Config, error) {
	file, err := decodeFile(data, ext)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	out := make([]Config, 0, len(file.Publishers))
	for i, cfg := range file.Publishers {
		cfg = sanitizeConfig(cfg)
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func decodeFile(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		exts []string
		fn   func([]byte, any) error
	}{
		{exts: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
		{exts: []string{".json"}, fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && !slices.Contains(d.exts, ext) {
			continue
		}
		var f configFile
		if err := d.fn(data, &f); err != nil {
			lastErr = err
			continue
		}
		return f, nil
	}
	if lastErr != nil {
		return configFile{}, fmt.Errorf("decode publishers file: %w", lastErr)
	}
	return configFile{}, fmt.Errorf("publishers file extension %q not recognized (expected YAML or JSON)", ext)
}

// sanitizeConfig trims and normalizes the publisher config fields.
func sanitizeConfig(cfg Config) Config {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Queue != nil {
		qc := *cfg.Queue
		qc.Provider = strings.ToLower(strings.TrimSpace(qc.Provider))
		if qc.SQS != nil {
			s := *qc.SQS
			s.QueueURL = strings.TrimSpace(s.QueueURL)
			s.AWSCredentials = trimCredentials(s.AWSCredentials)
			qc.SQS = &s
		}
		if qc.SNS != nil {
			s := *qc.SNS
			s.TopicARN = strings.TrimSpace(s.TopicARN)
			s.AWSCredentials = trimCredentials(s.AWSCredentials)
			qc.SNS = &s
		}
		if qc.GCP != nil {
			g := *qc.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			qc.GCP = &g
		}
		cfg.Queue = &qc
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	return cfg
}

func trimCredentials(c AWSCredentials) AWSCredentials {
	c.Region = strings.TrimSpace(c.Region)
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	return c
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateConfig checks that required fields are present.
func validateConfig(cfg Config) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeQueue:
		if cfg.Queue == nil {
			return fmt.Errorf("queue config required for publisher %q", cfg.ID)
		}
		switch cfg.Queue.Provider {
		case QueueProviderAWSSQS:
			if cfg.Queue.SQS == nil || cfg.Queue.SQS.QueueURL == "" {
				return fmt.Errorf("queue.sqs.queue_url is required for publisher %q", cfg.ID)
			}
			return validateCredentials(cfg.ID, "sqs", cfg.Queue.SQS.AWSCredentials)
		case QueueProviderAWSSNS:
			if cfg.Queue.SNS == nil || cfg.Queue.SNS.TopicARN == "" {
				return fmt.Errorf("queue.sns.topic_arn is required for publisher %q", cfg.ID)
			}
			return validateCredentials(cfg.ID, "sns", cfg.Queue.SNS.AWSCredentials)
		case QueueProviderGCP:
			g := cfg.Queue.GCP
			if g == nil || g.ProjectID == "" || g.Topic == "" {
				return fmt.Errorf("queue.gcp.project_id and queue.gcp.topic are required for publisher %q", cfg.ID)
			}
		default:
			return fmt.Errorf("queue provider %q not supported for publisher %q", cfg.Queue.Provider, cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
	return nil
}

// validateCredentials requires a region and, if either static key is set, both.
func validateCredentials(id, section string, c AWSCredentials) error {
	if c.Region == "" {
		return fmt.Errorf("queue.%s.region is required for publisher %q", section, id)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("queue.%s access_key_id and secret_access_key must be set together for publisher %q", section, id)
	}
	return nil
}
