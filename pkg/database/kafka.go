package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaReaderWithRetry 嘗試建立 Kafka Reader 並確認 broker 連線
func NewKafkaReaderWithRetry(k KafkaConnection) (*kafka.Reader, error) {
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		// 先確認 broker 可連線再建立 reader
		conn, dialErr := kafka.DialContext(context.Background(), "tcp", k.Brokers[0])
		if dialErr == nil {
			conn.Close()
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers: k.Brokers,
				Topic:   k.Topic,
				GroupID: k.GroupID,
			})
			log.Printf("Kafka Reader 建立成功 (嘗試 %d 次)", attempt)
			return reader, nil
		}
		err = dialErr

		log.Printf("Kafka Reader 建立失敗 (嘗試 %d/%d): %v", attempt, k.RetryCount, err)
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("無法建立 Kafka Reader，經過 %d 次嘗試: %v", k.RetryCount, err)
}
