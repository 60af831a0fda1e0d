package main

import (
	"strings"

	"github.com/ds124wfegd/memecaption/config"
	"github.com/ds124wfegd/memecaption/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	cfg.Kafka.Brokers = strings.Split(config.GetEnv("KAFKA_BROKERS", strings.Join(cfg.Kafka.Brokers, ",")), ",")
	cfg.Kafka.Topic = config.GetEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = config.GetEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	appServer.RunProcessor(cfg)
}
