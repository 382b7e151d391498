package util

import (
	"enasolar2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		InverterWeb: config.InverterWebConfig{
			Host:             "-.-.-.-",
			Port:             80,
			TimeoutMillis:    5000,
			FailureThreshold: 3,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "enasolar",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 60000,
		},
		Port: 8080,
	}
}
