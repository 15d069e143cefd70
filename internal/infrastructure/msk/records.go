// Package msk unpacks the Kafka batches AWS Lambda receives from an MSK or
// self-managed Kafka event source.
package msk

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/aws/aws-lambda-go/events"
)

// Record is one decoded message.
type Record struct {
	Topic     string
	Partition int64
	Offset    int64
	Key       []byte
	Value     []byte
}

func (r Record) String() string {
	return fmt.Sprintf("%s-%d@%d", r.Topic, r.Partition, r.Offset)
}

// Records flattens the batch and orders it by topic, partition and offset so
// events for one order are handled in publish order. Key and value arrive
// base64 encoded.
func Records(ev events.KafkaEvent) ([]Record, error) {
	var out []Record
	for _, batch := range ev.Records {
		for _, kr := range batch {
			r := Record{Topic: kr.Topic, Partition: kr.Partition, Offset: kr.Offset}
			var err error
			if r.Key, err = decode(kr.Key); err != nil {
				return nil, fmt.Errorf("record %s key: %w", r, err)
			}
			if r.Value, err = decode(kr.Value); err != nil {
				return nil, fmt.Errorf("record %s value: %w", r, err)
			}
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		return a.Offset < b.Offset
	})
	return out, nil
}

func decode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
