package kafka

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

const defaultRetention = 7 * 24 * time.Hour

type TopicAdminConfig struct {
	Brokers  []string
	ClientID string
}

type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Retention         time.Duration
}

func (t TopicSpec) detail() *sarama.TopicDetail {
	if t.Partitions <= 0 {
		t.Partitions = 1
	}
	if t.ReplicationFactor <= 0 {
		t.ReplicationFactor = 1
	}
	if t.Retention <= 0 {
		t.Retention = defaultRetention
	}
	return &sarama.TopicDetail{
		NumPartitions:     t.Partitions,
		ReplicationFactor: t.ReplicationFactor,
		ConfigEntries: map[string]*string{
			"retention.ms": strPtr(strconv.FormatInt(t.Retention.Milliseconds(), 10)),
		},
	}
}

// EnsureTopics creates every missing topic and leaves existing ones alone.
func EnsureTopics(cfg TopicAdminConfig, specs ...TopicSpec) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka brokers is empty")
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = strings.TrimSpace(cfg.ClientID)

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	defer admin.Close()

	existing, err := admin.ListTopics()
	if err != nil {
		return err
	}

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errors.New("kafka topic is empty")
		}
		if _, ok := existing[name]; ok {
			continue
		}
		if err := admin.CreateTopic(name, spec.detail(), false); err != nil {
			if errors.Is(err, sarama.ErrTopicAlreadyExists) {
				continue
			}
			return err
		}
	}
	return nil
}

func strPtr(v string) *string {
	s := v
	return &s
}
