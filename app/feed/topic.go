package feed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultTopicName = "sinkhole"

func DefaultTopic() *Topic {
	return &Topic{
		Name:     defaultTopicName,
		Keywords: append([]string(nil), DefaultKeywords...),
	}
}

// LoadTopic reads the topic vocabulary from a YAML file. An empty path yields
// the built-in topic.
func LoadTopic(path string) (*Topic, error) {
	if path == "" {
		return DefaultTopic(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if topic.Name == "" {
		topic.Name = defaultTopicName
	}

	if err := validateTopic(&topic); err != nil {
		return nil, fmt.Errorf("invalid topic %s: %w", path, err)
	}

	slog.Debug("Topic loaded", "topic", topic.Name, "keywords", len(topic.Keywords), "file", path)

	return &topic, nil
}

func validateTopic(topic *Topic) error {
	if len(topic.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}

	for i, keyword := range topic.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("keyword at index %d is blank", i)
		}
	}

	return nil
}
